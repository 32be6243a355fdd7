package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldserve-service/internal/domain/plan"
	xerrors "fieldserve-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type PlanRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, company_id, code, name, trade, description,
	monthly_price, annual_price, discount_pct,
	visits_included, priority_service, no_diagnostic_fee,
	included_services, active, created_at, updated_at`

func scanPlan(row pgx.Row) (*plan.AgreementPlan, error) {
	var p plan.AgreementPlan
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Trade, &p.Description,
		&p.MonthlyPrice, &p.AnnualPrice, &p.DiscountPct,
		&p.VisitsIncluded, &p.PriorityService, &p.NoDiagnosticFee,
		&p.IncludedServices, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan agreement plan: %w", err)
	}
	return &p, nil
}

// Create inserts a plan for a company. The (company_id, code) pair is
// unique; a violation maps to ErrDuplicateEntry.
func (r *PlanRepository) Create(ctx context.Context, p *plan.AgreementPlan) error {
	query := `
		INSERT INTO agreement_plans (
			company_id, code, name, trade, description,
			monthly_price, annual_price, discount_pct,
			visits_included, priority_service, no_diagnostic_fee,
			included_services, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.CompanyID, p.Code, p.Name, p.Trade, p.Description,
		p.MonthlyPrice, p.AnnualPrice, p.DiscountPct,
		p.VisitsIncluded, p.PriorityService, p.NoDiagnosticFee,
		pq.Array([]string(p.IncludedServices)), p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create agreement plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) FindByID(ctx context.Context, companyID, id int64) (*plan.AgreementPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM agreement_plans WHERE company_id = $1 AND id = $2`, planColumns)
	return scanPlan(r.db.QueryRow(ctx, query, companyID, id))
}

func (r *PlanRepository) List(ctx context.Context, companyID int64, filters *plan.ListFilters) ([]plan.AgreementPlan, int64, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{companyID}
	argIdx := 2

	if filters.Trade != nil {
		conditions = append(conditions, fmt.Sprintf("trade = $%d", argIdx))
		args = append(args, *filters.Trade)
		argIdx++
	}
	if filters.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argIdx))
		args = append(args, *filters.Active)
		argIdx++
	}
	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filters.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM agreement_plans WHERE %s", where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count agreement plans: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM agreement_plans
		WHERE %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, planColumns, where, argIdx, argIdx+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list agreement plans: %w", err)
	}
	defer rows.Close()

	var plans []plan.AgreementPlan
	for rows.Next() {
		var p plan.AgreementPlan
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Trade, &p.Description,
			&p.MonthlyPrice, &p.AnnualPrice, &p.DiscountPct,
			&p.VisitsIncluded, &p.PriorityService, &p.NoDiagnosticFee,
			&p.IncludedServices, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan agreement plan: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, total, rows.Err()
}

// Update persists the mutable plan fields.
func (r *PlanRepository) Update(ctx context.Context, p *plan.AgreementPlan) error {
	query := `
		UPDATE agreement_plans SET
			name = $3, description = $4,
			monthly_price = $5, annual_price = $6, discount_pct = $7,
			visits_included = $8, priority_service = $9, no_diagnostic_fee = $10,
			included_services = $11, active = $12, updated_at = NOW()
		WHERE company_id = $1 AND id = $2
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.CompanyID, p.ID,
		p.Name, p.Description,
		p.MonthlyPrice, p.AnnualPrice, p.DiscountPct,
		p.VisitsIncluded, p.PriorityService, p.NoDiagnosticFee,
		pq.Array([]string(p.IncludedServices)), p.Active,
	).Scan(&p.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update agreement plan: %w", err)
	}
	return nil
}

// Deactivate blocks new agreements against the plan without touching
// existing ones.
func (r *PlanRepository) Deactivate(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE agreement_plans SET active = false, updated_at = NOW() WHERE company_id = $1 AND id = $2`,
		companyID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate agreement plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
