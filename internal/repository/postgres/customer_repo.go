package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldserve-service/internal/domain/customer"
	xerrors "fieldserve-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type CustomerRepository struct {
	db *DB
}

func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, company_id, name, email, phone,
	address_line, city, state, postal_code, tags, created_at, updated_at`

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			company_id, name, email, phone,
			address_line, city, state, postal_code, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		c.CompanyID, c.Name, c.Email, c.Phone,
		c.AddressLine, c.City, c.State, c.PostalCode, pq.Array([]string(c.Tags)),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, companyID, id int64) (*customer.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE company_id = $1 AND id = $2`, customerColumns)

	var c customer.Customer
	err := r.db.QueryRow(ctx, query, companyID, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone,
		&c.AddressLine, &c.City, &c.State, &c.PostalCode, &c.Tags,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) List(ctx context.Context, companyID int64, filters *customer.ListFilters) ([]customer.Customer, int64, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{companyID}
	argIdx := 2

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+filters.Search+"%")
		argIdx++
	}
	if len(filters.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d", argIdx))
		args = append(args, pq.Array(filters.Tags))
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers WHERE %s", where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM customers
		WHERE %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, customerColumns, where, argIdx, argIdx+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []customer.Customer
	for rows.Next() {
		var c customer.Customer
		if err := rows.Scan(
			&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone,
			&c.AddressLine, &c.City, &c.State, &c.PostalCode, &c.Tags,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	return customers, total, rows.Err()
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers SET
			name = $3, email = $4, phone = $5,
			address_line = $6, city = $7, state = $8, postal_code = $9,
			tags = $10, updated_at = NOW()
		WHERE company_id = $1 AND id = $2
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		c.CompanyID, c.ID,
		c.Name, c.Email, c.Phone,
		c.AddressLine, c.City, c.State, c.PostalCode,
		pq.Array([]string(c.Tags)),
	).Scan(&c.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}
