package agreement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/notification"
	"fieldserve-service/internal/domain/plan"
	xerrors "fieldserve-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// AgreementRepository is implemented by postgres.AgreementRepository.
type AgreementRepository interface {
	Create(ctx context.Context, a *agreement.ServiceAgreement) error
	FindByID(ctx context.Context, companyID, id int64) (*agreement.ServiceAgreement, error)
	Update(ctx context.Context, a *agreement.ServiceAgreement, expectedVersion int64) error
	RecordVisit(ctx context.Context, a *agreement.ServiceAgreement, expectedVersion int64, v *agreement.Visit) error
	ListVisits(ctx context.Context, companyID, agreementID int64) ([]agreement.Visit, error)
	List(ctx context.Context, companyID int64, filters *agreement.ListFilters, now time.Time) ([]agreement.ServiceAgreement, int64, error)
	FindDue(ctx context.Context, now time.Time) ([]agreement.ServiceAgreement, error)
	FindEnteringWindow(ctx context.Context, now time.Time) ([]agreement.ServiceAgreement, error)
	MarkExpiryNotified(ctx context.Context, id int64, at time.Time) error
	Summary(ctx context.Context, companyID int64, now time.Time) (*agreement.Summary, error)
}

type PlanRepository interface {
	FindByID(ctx context.Context, companyID, id int64) (*plan.AgreementPlan, error)
}

type CustomerRepository interface {
	FindByID(ctx context.Context, companyID, id int64) (*customer.Customer, error)
}

// Notifier fans an agreement lifecycle event out to the company's
// dashboard users. Implementations must not block the caller.
type Notifier interface {
	AgreementEvent(ctx context.Context, a *agreement.ServiceAgreement, t notification.Type, title, body string)
}

// Policy holds the tunable lifecycle rules. ResetVisitsOnRenew decides
// whether a renewal zeroes the visit counter or carries the balance
// into the new term.
type Policy struct {
	ResetVisitsOnRenew bool
}

type Service struct {
	agreementRepo AgreementRepository
	planRepo      PlanRepository
	customerRepo  CustomerRepository
	notifier      Notifier
	policy        Policy
	logger        *zap.Logger
}

func NewService(
	agreementRepo AgreementRepository,
	planRepo PlanRepository,
	customerRepo CustomerRepository,
	notifier Notifier,
	policy Policy,
	logger *zap.Logger,
) *Service {
	return &Service{
		agreementRepo: agreementRepo,
		planRepo:      planRepo,
		customerRepo:  customerRepo,
		notifier:      notifier,
		policy:        policy,
		logger:        logger,
	}
}

// Create signs a customer up for a plan. The term is one year from the
// start date; the renewal date tracks the end date.
func (s *Service) Create(ctx context.Context, companyID int64, req *agreement.CreateAgreementRequest) (*agreement.Detail, error) {
	p, err := s.planRepo.FindByID(ctx, companyID, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("agreement plan not found: %w", err)
	}
	if !p.Active {
		return nil, xerrors.ErrPlanInactive
	}

	cust, err := s.customerRepo.FindByID(ctx, companyID, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer not found: %w", err)
	}

	status := req.Status
	if status == "" {
		status = agreement.StatusPending
	}

	start := time.Now()
	if req.StartDate != nil {
		start = *req.StartDate
	}
	end := start.AddDate(1, 0, 0)

	a := &agreement.ServiceAgreement{
		AgreementNumber:  generateAgreementNumber(),
		CompanyID:        companyID,
		CustomerID:       cust.ID,
		PlanID:           p.ID,
		Status:           status,
		StartDate:        start,
		EndDate:          end,
		RenewalDate:      end,
		BillingFrequency: req.BillingFrequency,
		AutoRenew:        req.AutoRenew,
	}
	if req.PaymentMethod != "" {
		a.PaymentMethod = sql.NullString{String: req.PaymentMethod, Valid: true}
	}
	if req.Notes != "" {
		a.Notes = sql.NullString{String: req.Notes, Valid: true}
	}

	if err := s.agreementRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create agreement: %w", err)
	}

	s.logger.Info("service agreement created",
		zap.Int64("agreement_id", a.ID),
		zap.String("agreement_number", a.AgreementNumber),
		zap.Int64("company_id", companyID),
		zap.Int64("customer_id", cust.ID),
		zap.Int64("plan_id", p.ID),
		zap.String("status", string(a.Status)),
	)

	return s.detail(a, p, cust), nil
}

// Get returns the agreement with the live plan and customer plus the
// derived display fields.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*agreement.Detail, error) {
	a, err := s.agreementRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, a)
}

func (s *Service) List(ctx context.Context, companyID int64, filters *agreement.ListFilters) (*agreement.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	agreements, total, err := s.agreementRepo.List(ctx, companyID, filters, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}

	totalPages := int((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	return &agreement.ListResponse{
		Agreements: agreements,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update applies a partial operator edit. The submitted version must
// match the stored one or the write is rejected as stale, and a status
// change must be a legal transition.
func (s *Service) Update(ctx context.Context, companyID, id int64, req *agreement.UpdateAgreementRequest) (*agreement.Detail, error) {
	a, err := s.agreementRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Version == nil || *req.Version != a.Version {
		return nil, xerrors.ErrConflict
	}

	if req.Status != nil && *req.Status != a.Status {
		if !agreement.CanTransition(a.Status, *req.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", xerrors.ErrInvalidTransition, a.Status, *req.Status)
		}
		if *req.Status == agreement.StatusCancelled {
			a.CancelledAt = sql.NullTime{Time: time.Now(), Valid: true}
		}
		a.Status = *req.Status
	}
	if req.BillingFrequency != nil {
		a.BillingFrequency = *req.BillingFrequency
	}
	if req.AutoRenew != nil {
		a.AutoRenew = *req.AutoRenew
	}
	if req.PaymentMethod != nil {
		a.PaymentMethod = sql.NullString{String: *req.PaymentMethod, Valid: *req.PaymentMethod != ""}
	}
	if req.Notes != nil {
		a.Notes = sql.NullString{String: *req.Notes, Valid: *req.Notes != ""}
	}

	if err := s.agreementRepo.Update(ctx, a, *req.Version); err != nil {
		return nil, err
	}

	s.logger.Info("service agreement updated",
		zap.Int64("agreement_id", a.ID),
		zap.String("status", string(a.Status)),
		zap.Int64("version", a.Version),
	)

	return s.loadDetail(ctx, a)
}

// Renew extends an active agreement that is inside the 30-day window by
// one term. Identity fields (number, customer, plan) are untouched.
func (s *Service) Renew(ctx context.Context, companyID, id int64) (*agreement.Detail, error) {
	a, err := s.agreementRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !a.CanRenew(now) {
		return nil, fmt.Errorf("%w: status=%s, ends %s", xerrors.ErrRenewNotAllowed, a.Status, a.EndDate.Format(time.RFC3339))
	}

	s.applyRenewal(a)

	if err := s.agreementRepo.Update(ctx, a, a.Version); err != nil {
		return nil, err
	}

	s.logger.Info("service agreement renewed",
		zap.Int64("agreement_id", a.ID),
		zap.String("agreement_number", a.AgreementNumber),
		zap.Time("new_end_date", a.EndDate),
		zap.Bool("visits_reset", s.policy.ResetVisitsOnRenew),
	)

	return s.loadDetail(ctx, a)
}

// applyRenewal mutates the row for a one-term extension, shared by the
// manual renew endpoint and the auto-renew sweep.
func (s *Service) applyRenewal(a *agreement.ServiceAgreement) {
	a.EndDate = a.EndDate.AddDate(1, 0, 0)
	a.RenewalDate = a.EndDate
	a.ExpiringNotifiedAt = sql.NullTime{}
	if s.policy.ResetVisitsOnRenew {
		a.VisitsUsed = 0
		a.NextVisitDue = sql.NullTime{}
	}
}

// Cancel is idempotent at the status level: cancelling a CANCELLED
// agreement returns it unchanged.
func (s *Service) Cancel(ctx context.Context, companyID, id int64) (*agreement.Detail, error) {
	a, err := s.agreementRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if a.Status == agreement.StatusCancelled {
		return s.loadDetail(ctx, a)
	}

	a.Status = agreement.StatusCancelled
	a.CancelledAt = sql.NullTime{Time: time.Now(), Valid: true}

	if err := s.agreementRepo.Update(ctx, a, a.Version); err != nil {
		return nil, err
	}

	s.logger.Info("service agreement cancelled",
		zap.Int64("agreement_id", a.ID),
		zap.String("agreement_number", a.AgreementNumber),
	)

	return s.loadDetail(ctx, a)
}

// RecordVisit books a completed maintenance visit against the quota.
// The counter is not clamped: going past the plan's included visits is
// recorded and logged, not rejected.
func (s *Service) RecordVisit(ctx context.Context, companyID, id int64, req *agreement.RecordVisitRequest) (*agreement.Detail, error) {
	a, err := s.agreementRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != agreement.StatusActive {
		return nil, fmt.Errorf("%w: visits can only be recorded on active agreements", xerrors.ErrInvalidInput)
	}

	p, err := s.planRepo.FindByID(ctx, companyID, a.PlanID)
	if err != nil {
		return nil, fmt.Errorf("agreement plan not found: %w", err)
	}

	visitedAt := time.Now()
	if req.VisitedAt != nil {
		visitedAt = *req.VisitedAt
	}

	expectedVersion := a.Version
	a.VisitsUsed++
	a.LastVisitDate = sql.NullTime{Time: visitedAt, Valid: true}
	a.NextVisitDue = nextVisitDue(visitedAt, p.VisitsIncluded)

	v := &agreement.Visit{
		AgreementID: a.ID,
		VisitedAt:   visitedAt,
	}
	if req.JobReference != "" {
		v.JobReference = sql.NullString{String: req.JobReference, Valid: true}
	}
	if req.Technician != "" {
		v.Technician = sql.NullString{String: req.Technician, Valid: true}
	}
	if req.Notes != "" {
		v.Notes = sql.NullString{String: req.Notes, Valid: true}
	}

	if err := s.agreementRepo.RecordVisit(ctx, a, expectedVersion, v); err != nil {
		return nil, err
	}

	if a.VisitsUsed > p.VisitsIncluded {
		s.logger.Warn("agreement visit quota exceeded",
			zap.Int64("agreement_id", a.ID),
			zap.Int("visits_used", a.VisitsUsed),
			zap.Int("visits_included", p.VisitsIncluded),
		)
	}

	cust, err := s.customerRepo.FindByID(ctx, companyID, a.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer not found: %w", err)
	}
	return s.detail(a, p, cust), nil
}

func (s *Service) Visits(ctx context.Context, companyID, id int64) ([]agreement.Visit, error) {
	if _, err := s.agreementRepo.FindByID(ctx, companyID, id); err != nil {
		return nil, err
	}
	return s.agreementRepo.ListVisits(ctx, companyID, id)
}

func (s *Service) Summary(ctx context.Context, companyID int64) (*agreement.Summary, error) {
	return s.agreementRepo.Summary(ctx, companyID, time.Now())
}

func (s *Service) loadDetail(ctx context.Context, a *agreement.ServiceAgreement) (*agreement.Detail, error) {
	p, err := s.planRepo.FindByID(ctx, a.CompanyID, a.PlanID)
	if err != nil {
		return nil, fmt.Errorf("agreement plan not found: %w", err)
	}
	cust, err := s.customerRepo.FindByID(ctx, a.CompanyID, a.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer not found: %w", err)
	}
	return s.detail(a, p, cust), nil
}

func (s *Service) detail(a *agreement.ServiceAgreement, p *plan.AgreementPlan, cust *customer.Customer) *agreement.Detail {
	now := time.Now()
	return &agreement.Detail{
		Agreement:    a,
		Plan:         p,
		Customer:     cust,
		Usage:        a.UsageAgainst(p),
		ExpiringSoon: a.ExpiringSoon(now),
		CanRenew:     a.CanRenew(now),
	}
}

// nextVisitDue spreads the included visits evenly across the term. A
// zero-visit plan has no due date.
func nextVisitDue(from time.Time, visitsIncluded int) sql.NullTime {
	if visitsIncluded <= 0 {
		return sql.NullTime{}
	}
	interval := agreement.TermLength / time.Duration(visitsIncluded)
	return sql.NullTime{Time: from.Add(interval), Valid: true}
}

func generateAgreementNumber() string {
	return "SA-" + ulid.Make().String()
}
