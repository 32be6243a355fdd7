package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldserve-service/internal/domain/agreement"
	xerrors "fieldserve-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type AgreementRepository struct {
	db *DB
}

func NewAgreementRepository(db *DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

const agreementColumns = `id, agreement_number, company_id, customer_id, plan_id, status,
	start_date, end_date, renewal_date,
	billing_frequency, payment_method, auto_renew,
	visits_used, last_visit_date, next_visit_due,
	notes, version, cancelled_at, expiring_notified_at,
	created_at, updated_at`

func scanAgreement(row pgx.Row) (*agreement.ServiceAgreement, error) {
	var a agreement.ServiceAgreement
	err := row.Scan(
		&a.ID, &a.AgreementNumber, &a.CompanyID, &a.CustomerID, &a.PlanID, &a.Status,
		&a.StartDate, &a.EndDate, &a.RenewalDate,
		&a.BillingFrequency, &a.PaymentMethod, &a.AutoRenew,
		&a.VisitsUsed, &a.LastVisitDate, &a.NextVisitDue,
		&a.Notes, &a.Version, &a.CancelledAt, &a.ExpiringNotifiedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan service agreement: %w", err)
	}
	return &a, nil
}

func (r *AgreementRepository) Create(ctx context.Context, a *agreement.ServiceAgreement) error {
	query := `
		INSERT INTO service_agreements (
			agreement_number, company_id, customer_id, plan_id, status,
			start_date, end_date, renewal_date,
			billing_frequency, payment_method, auto_renew,
			visits_used, notes, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		a.AgreementNumber, a.CompanyID, a.CustomerID, a.PlanID, a.Status,
		a.StartDate, a.EndDate, a.RenewalDate,
		a.BillingFrequency, a.PaymentMethod, a.AutoRenew,
		a.VisitsUsed, a.Notes,
	).Scan(&a.ID, &a.Version, &a.CreatedAt, &a.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create service agreement: %w", err)
	}
	return nil
}

func (r *AgreementRepository) FindByID(ctx context.Context, companyID, id int64) (*agreement.ServiceAgreement, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_agreements WHERE company_id = $1 AND id = $2`, agreementColumns)
	return scanAgreement(r.db.QueryRow(ctx, query, companyID, id))
}

// Update persists the whole mutable row iff the stored version still
// matches expectedVersion, incrementing the version in the same
// statement. A missing row is reported as ErrNotFound, a live row with
// a newer version as ErrConflict.
func (r *AgreementRepository) Update(ctx context.Context, a *agreement.ServiceAgreement, expectedVersion int64) error {
	query := `
		UPDATE service_agreements SET
			status = $4, start_date = $5, end_date = $6, renewal_date = $7,
			billing_frequency = $8, payment_method = $9, auto_renew = $10,
			visits_used = $11, last_visit_date = $12, next_visit_due = $13,
			notes = $14, cancelled_at = $15, expiring_notified_at = $16,
			version = version + 1, updated_at = NOW()
		WHERE company_id = $1 AND id = $2 AND version = $3
		RETURNING version, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		a.CompanyID, a.ID, expectedVersion,
		a.Status, a.StartDate, a.EndDate, a.RenewalDate,
		a.BillingFrequency, a.PaymentMethod, a.AutoRenew,
		a.VisitsUsed, a.LastVisitDate, a.NextVisitDue,
		a.Notes, a.CancelledAt, a.ExpiringNotifiedAt,
	).Scan(&a.Version, &a.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Version mismatch and missing row both come back empty;
		// distinguish with a plain lookup.
		if _, findErr := r.FindByID(ctx, a.CompanyID, a.ID); findErr != nil {
			return findErr
		}
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update service agreement: %w", err)
	}
	return nil
}

// RecordVisit inserts the visit row and the updated counters in one
// transaction, guarded by the same version check as Update.
func (r *AgreementRepository) RecordVisit(ctx context.Context, a *agreement.ServiceAgreement, expectedVersion int64, v *agreement.Visit) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO agreement_visits (agreement_id, job_reference, technician, visited_at, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, v.AgreementID, v.JobReference, v.Technician, v.VisitedAt, v.Notes,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert agreement visit: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE service_agreements SET
			visits_used = $4, last_visit_date = $5, next_visit_due = $6,
			version = version + 1, updated_at = NOW()
		WHERE company_id = $1 AND id = $2 AND version = $3
		RETURNING version, updated_at
	`, a.CompanyID, a.ID, expectedVersion,
		a.VisitsUsed, a.LastVisitDate, a.NextVisitDue,
	).Scan(&a.Version, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update visit counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit visit: %w", err)
	}
	return nil
}

func (r *AgreementRepository) ListVisits(ctx context.Context, companyID, agreementID int64) ([]agreement.Visit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.agreement_id, v.job_reference, v.technician, v.visited_at, v.notes, v.created_at
		FROM agreement_visits v
		JOIN service_agreements a ON a.id = v.agreement_id
		WHERE a.company_id = $1 AND v.agreement_id = $2
		ORDER BY v.visited_at DESC
	`, companyID, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreement visits: %w", err)
	}
	defer rows.Close()

	var visits []agreement.Visit
	for rows.Next() {
		var v agreement.Visit
		if err := rows.Scan(&v.ID, &v.AgreementID, &v.JobReference, &v.Technician, &v.VisitedAt, &v.Notes, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agreement visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (r *AgreementRepository) List(ctx context.Context, companyID int64, filters *agreement.ListFilters, now time.Time) ([]agreement.ServiceAgreement, int64, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{companyID}
	argIdx := 2

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filters.Status)
		argIdx++
	}
	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, *filters.CustomerID)
		argIdx++
	}
	if filters.ExpiringSoon != nil && *filters.ExpiringSoon {
		conditions = append(conditions, fmt.Sprintf("end_date < $%d AND status = 'ACTIVE'", argIdx))
		args = append(args, now.Add(agreement.RenewWindow))
		argIdx++
	}
	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("agreement_number ILIKE $%d", argIdx))
		args = append(args, "%"+filters.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM service_agreements WHERE %s", where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count service agreements: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM service_agreements
		WHERE %s
		ORDER BY end_date ASC
		LIMIT $%d OFFSET $%d
	`, agreementColumns, where, argIdx, argIdx+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list service agreements: %w", err)
	}
	defer rows.Close()

	agreements, err := collectAgreements(rows)
	if err != nil {
		return nil, 0, err
	}
	return agreements, total, nil
}

// FindDue returns agreements across all companies whose term has lapsed
// and which still need the expiry sweep to act on them.
func (r *AgreementRepository) FindDue(ctx context.Context, now time.Time) ([]agreement.ServiceAgreement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM service_agreements
		WHERE status IN ('ACTIVE', 'SUSPENDED') AND end_date < $1
		ORDER BY end_date ASC
	`, agreementColumns)

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find due agreements: %w", err)
	}
	defer rows.Close()

	return collectAgreements(rows)
}

// FindEnteringWindow returns active agreements that just crossed into
// the expiring-soon window and have not been reminded this term.
func (r *AgreementRepository) FindEnteringWindow(ctx context.Context, now time.Time) ([]agreement.ServiceAgreement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM service_agreements
		WHERE status = 'ACTIVE'
		  AND end_date >= $1 AND end_date < $2
		  AND expiring_notified_at IS NULL
		ORDER BY end_date ASC
	`, agreementColumns)

	rows, err := r.db.Query(ctx, query, now, now.Add(agreement.RenewWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring agreements: %w", err)
	}
	defer rows.Close()

	return collectAgreements(rows)
}

// MarkExpiryNotified stamps the reminder so the sweep does not repeat
// it within the same term.
func (r *AgreementRepository) MarkExpiryNotified(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE service_agreements SET expiring_notified_at = $2, updated_at = NOW() WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark expiry notified: %w", err)
	}
	return nil
}

func (r *AgreementRepository) Summary(ctx context.Context, companyID int64, now time.Time) (*agreement.Summary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE status = 'SUSPENDED'),
			COUNT(*) FILTER (WHERE status = 'EXPIRED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COUNT(*) FILTER (WHERE status = 'ACTIVE' AND end_date < $2)
		FROM service_agreements
		WHERE company_id = $1
	`

	var s agreement.Summary
	err := r.db.QueryRow(ctx, query, companyID, now.Add(agreement.RenewWindow)).Scan(
		&s.Total, &s.Pending, &s.Active, &s.Suspended, &s.Expired, &s.Cancelled, &s.ExpiringSoon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute agreement summary: %w", err)
	}
	return &s, nil
}

func collectAgreements(rows pgx.Rows) ([]agreement.ServiceAgreement, error) {
	var agreements []agreement.ServiceAgreement
	for rows.Next() {
		var a agreement.ServiceAgreement
		if err := rows.Scan(
			&a.ID, &a.AgreementNumber, &a.CompanyID, &a.CustomerID, &a.PlanID, &a.Status,
			&a.StartDate, &a.EndDate, &a.RenewalDate,
			&a.BillingFrequency, &a.PaymentMethod, &a.AutoRenew,
			&a.VisitsUsed, &a.LastVisitDate, &a.NextVisitDue,
			&a.Notes, &a.Version, &a.CancelledAt, &a.ExpiringNotifiedAt,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service agreement: %w", err)
		}
		agreements = append(agreements, a)
	}
	return agreements, rows.Err()
}
