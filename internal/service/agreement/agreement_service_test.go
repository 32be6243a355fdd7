package agreement

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/notification"
	"fieldserve-service/internal/domain/plan"
	xerrors "fieldserve-service/internal/pkg/errors"
)

// ---------- in-memory fakes ----------

type fakeAgreementRepo struct {
	rows   map[int64]*domain.ServiceAgreement
	visits map[int64][]domain.Visit
	nextID int64
}

func newFakeAgreementRepo() *fakeAgreementRepo {
	return &fakeAgreementRepo{
		rows:   make(map[int64]*domain.ServiceAgreement),
		visits: make(map[int64][]domain.Visit),
	}
}

func (r *fakeAgreementRepo) Create(_ context.Context, a *domain.ServiceAgreement) error {
	r.nextID++
	a.ID = r.nextID
	a.Version = 1
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *fakeAgreementRepo) FindByID(_ context.Context, companyID, id int64) (*domain.ServiceAgreement, error) {
	a, ok := r.rows[id]
	if !ok || a.CompanyID != companyID {
		return nil, xerrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAgreementRepo) Update(_ context.Context, a *domain.ServiceAgreement, expectedVersion int64) error {
	stored, ok := r.rows[a.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return xerrors.ErrConflict
	}
	a.Version = expectedVersion + 1
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *fakeAgreementRepo) RecordVisit(ctx context.Context, a *domain.ServiceAgreement, expectedVersion int64, v *domain.Visit) error {
	if err := r.Update(ctx, a, expectedVersion); err != nil {
		return err
	}
	v.ID = int64(len(r.visits[a.ID]) + 1)
	r.visits[a.ID] = append(r.visits[a.ID], *v)
	return nil
}

func (r *fakeAgreementRepo) ListVisits(_ context.Context, _, agreementID int64) ([]domain.Visit, error) {
	return r.visits[agreementID], nil
}

func (r *fakeAgreementRepo) List(_ context.Context, companyID int64, filters *domain.ListFilters, _ time.Time) ([]domain.ServiceAgreement, int64, error) {
	var out []domain.ServiceAgreement
	for _, a := range r.rows {
		if a.CompanyID != companyID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAgreementRepo) FindDue(_ context.Context, now time.Time) ([]domain.ServiceAgreement, error) {
	var out []domain.ServiceAgreement
	for _, a := range r.rows {
		if (a.Status == domain.StatusActive || a.Status == domain.StatusSuspended) && !a.EndDate.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAgreementRepo) FindEnteringWindow(_ context.Context, now time.Time) ([]domain.ServiceAgreement, error) {
	var out []domain.ServiceAgreement
	for _, a := range r.rows {
		if a.Status == domain.StatusActive && a.EndDate.After(now) && a.ExpiringSoon(now) && !a.ExpiringNotifiedAt.Valid {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAgreementRepo) MarkExpiryNotified(_ context.Context, id int64, at time.Time) error {
	a, ok := r.rows[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.ExpiringNotifiedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (r *fakeAgreementRepo) Summary(_ context.Context, companyID int64, now time.Time) (*domain.Summary, error) {
	s := &domain.Summary{}
	for _, a := range r.rows {
		if a.CompanyID != companyID {
			continue
		}
		s.Total++
		switch a.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusActive:
			s.Active++
		case domain.StatusSuspended:
			s.Suspended++
		case domain.StatusExpired:
			s.Expired++
		case domain.StatusCancelled:
			s.Cancelled++
		}
		if a.Status == domain.StatusActive && a.ExpiringSoon(now) {
			s.ExpiringSoon++
		}
	}
	return s, nil
}

type fakePlanRepo struct {
	plans map[int64]*plan.AgreementPlan
}

func (r *fakePlanRepo) FindByID(_ context.Context, companyID, id int64) (*plan.AgreementPlan, error) {
	p, ok := r.plans[id]
	if !ok || p.CompanyID != companyID {
		return nil, xerrors.ErrNotFound
	}
	return p, nil
}

type fakeCustomerRepo struct {
	customers map[int64]*customer.Customer
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, companyID, id int64) (*customer.Customer, error) {
	c, ok := r.customers[id]
	if !ok || c.CompanyID != companyID {
		return nil, xerrors.ErrNotFound
	}
	return c, nil
}

type notifierEvent struct {
	agreementID int64
	eventType   notification.Type
}

type fakeNotifier struct {
	events []notifierEvent
}

func (n *fakeNotifier) AgreementEvent(_ context.Context, a *domain.ServiceAgreement, t notification.Type, _, _ string) {
	n.events = append(n.events, notifierEvent{agreementID: a.ID, eventType: t})
}

// ---------- fixtures ----------

const testCompanyID int64 = 7

type fixture struct {
	svc      *Service
	repo     *fakeAgreementRepo
	plans    *fakePlanRepo
	notifier *fakeNotifier
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()

	repo := newFakeAgreementRepo()
	plans := &fakePlanRepo{plans: map[int64]*plan.AgreementPlan{
		1: {
			ID:             1,
			CompanyID:      testCompanyID,
			Code:           "hvac-gold",
			Name:           "Gold HVAC Plan",
			Trade:          plan.TradeHVAC,
			VisitsIncluded: 2,
			Active:         true,
		},
		2: {
			ID:        2,
			CompanyID: testCompanyID,
			Code:      "retired",
			Name:      "Retired Plan",
			Active:    false,
		},
	}}
	customers := &fakeCustomerRepo{customers: map[int64]*customer.Customer{
		10: {
			ID:        10,
			CompanyID: testCompanyID,
			Name:      "Dana Whitfield",
			Email:     sql.NullString{String: "dana@example.com", Valid: true},
		},
	}}
	notifier := &fakeNotifier{}

	svc := NewService(repo, plans, customers, notifier, policy, zap.NewNop())
	return &fixture{svc: svc, repo: repo, plans: plans, notifier: notifier}
}

func (f *fixture) create(t *testing.T, req *domain.CreateAgreementRequest) *domain.ServiceAgreement {
	t.Helper()
	if req == nil {
		req = &domain.CreateAgreementRequest{
			CustomerID:       10,
			PlanID:           1,
			BillingFrequency: domain.BillingMonthly,
		}
	}
	detail, err := f.svc.Create(context.Background(), testCompanyID, req)
	require.NoError(t, err)
	return detail.Agreement
}

// createEndingIn stores an active agreement whose term ends the given
// duration from now.
func (f *fixture) createEndingIn(t *testing.T, d time.Duration) *domain.ServiceAgreement {
	t.Helper()
	start := time.Now().Add(d).AddDate(-1, 0, 0)
	a := f.create(t, &domain.CreateAgreementRequest{
		CustomerID:       10,
		PlanID:           1,
		Status:           domain.StatusActive,
		StartDate:        &start,
		BillingFrequency: domain.BillingAnnual,
	})
	return a
}

// ---------- Create ----------

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t, Policy{ResetVisitsOnRenew: true})

	detail, err := f.svc.Create(context.Background(), testCompanyID, &domain.CreateAgreementRequest{
		CustomerID:       10,
		PlanID:           1,
		BillingFrequency: domain.BillingMonthly,
	})
	require.NoError(t, err)

	a := detail.Agreement
	assert.Equal(t, domain.StatusPending, a.Status)
	assert.True(t, strings.HasPrefix(a.AgreementNumber, "SA-"))
	assert.Equal(t, a.StartDate.AddDate(1, 0, 0), a.EndDate)
	assert.Equal(t, a.EndDate, a.RenewalDate)
	assert.Equal(t, int64(1), a.Version)
	assert.Zero(t, a.VisitsUsed)
	assert.Equal(t, 2, detail.Usage.Remaining)
}

func TestCreateInactivePlan(t *testing.T) {
	f := newFixture(t, Policy{})

	_, err := f.svc.Create(context.Background(), testCompanyID, &domain.CreateAgreementRequest{
		CustomerID:       10,
		PlanID:           2,
		BillingFrequency: domain.BillingMonthly,
	})
	assert.ErrorIs(t, err, xerrors.ErrPlanInactive)
}

func TestCreateUnknownCustomer(t *testing.T) {
	f := newFixture(t, Policy{})

	_, err := f.svc.Create(context.Background(), testCompanyID, &domain.CreateAgreementRequest{
		CustomerID:       999,
		PlanID:           1,
		BillingFrequency: domain.BillingMonthly,
	})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

// ---------- Update ----------

func TestUpdateFieldEdit(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	notes := "gate code 4411"
	version := a.Version
	detail, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Notes:   &notes,
		Version: &version,
	})
	require.NoError(t, err)

	assert.Equal(t, "gate code 4411", detail.Agreement.Notes.String)
	assert.Equal(t, domain.StatusPending, detail.Agreement.Status)
	assert.Equal(t, version+1, detail.Agreement.Version)
}

func TestUpdateStaleVersion(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	stale := a.Version - 1
	_, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Version: &stale,
	})
	assert.ErrorIs(t, err, xerrors.ErrConflict)
}

func TestUpdateMissingVersion(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	_, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{})
	assert.ErrorIs(t, err, xerrors.ErrConflict)
}

func TestUpdateLegalTransition(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	active := domain.StatusActive
	version := a.Version
	detail, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Status:  &active,
		Version: &version,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, detail.Agreement.Status)
}

func TestUpdateIllegalTransition(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.createEndingIn(t, 200*24*time.Hour)

	pending := domain.StatusPending
	version := a.Version
	_, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Status:  &pending,
		Version: &version,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)
}

func TestUpdateFromCancelled(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	_, err := f.svc.Cancel(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	active := domain.StatusActive
	version := a.Version + 1
	_, err = f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Status:  &active,
		Version: &version,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)
}

func TestUpdateToCancelledSetsTimestamp(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	cancelled := domain.StatusCancelled
	version := a.Version
	detail, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Status:  &cancelled,
		Version: &version,
	})
	require.NoError(t, err)
	assert.True(t, detail.Agreement.CancelledAt.Valid)
}

// ---------- Renew ----------

func TestRenewInsideWindow(t *testing.T) {
	f := newFixture(t, Policy{ResetVisitsOnRenew: true})
	a := f.createEndingIn(t, 10*24*time.Hour)
	oldEnd := a.EndDate

	detail, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	renewed := detail.Agreement
	assert.Equal(t, oldEnd.AddDate(1, 0, 0), renewed.EndDate)
	assert.Equal(t, renewed.EndDate, renewed.RenewalDate)
	assert.Equal(t, domain.StatusActive, renewed.Status)
	assert.False(t, renewed.ExpiringNotifiedAt.Valid)
	assert.False(t, detail.CanRenew)
}

func TestRenewOutsideWindow(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.createEndingIn(t, 31*24*time.Hour)

	_, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	assert.ErrorIs(t, err, xerrors.ErrRenewNotAllowed)
}

func TestRenewNonActive(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil) // PENDING

	_, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	assert.ErrorIs(t, err, xerrors.ErrRenewNotAllowed)
}

func TestRenewPreservesIdentity(t *testing.T) {
	f := newFixture(t, Policy{ResetVisitsOnRenew: true})
	a := f.createEndingIn(t, 10*24*time.Hour)

	detail, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	renewed := detail.Agreement
	assert.Equal(t, a.ID, renewed.ID)
	assert.Equal(t, a.AgreementNumber, renewed.AgreementNumber)
	assert.Equal(t, a.CustomerID, renewed.CustomerID)
	assert.Equal(t, a.PlanID, renewed.PlanID)
}

func TestRenewResetsVisits(t *testing.T) {
	f := newFixture(t, Policy{ResetVisitsOnRenew: true})
	a := f.createEndingIn(t, 10*24*time.Hour)

	_, err := f.svc.RecordVisit(context.Background(), testCompanyID, a.ID, &domain.RecordVisitRequest{})
	require.NoError(t, err)

	detail, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.Zero(t, detail.Agreement.VisitsUsed)
	assert.False(t, detail.Agreement.NextVisitDue.Valid)
}

func TestRenewCarriesVisits(t *testing.T) {
	f := newFixture(t, Policy{ResetVisitsOnRenew: false})
	a := f.createEndingIn(t, 10*24*time.Hour)

	_, err := f.svc.RecordVisit(context.Background(), testCompanyID, a.ID, &domain.RecordVisitRequest{})
	require.NoError(t, err)

	detail, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Agreement.VisitsUsed)
}

// ---------- Cancel ----------

func TestCancel(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	detail, err := f.svc.Cancel(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, detail.Agreement.Status)
	assert.True(t, detail.Agreement.CancelledAt.Valid)
}

func TestCancelIdempotent(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	first, err := f.svc.Cancel(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	second, err := f.svc.Cancel(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, second.Agreement.Status)
	// Second cancel is a no-op: no extra version bump.
	assert.Equal(t, first.Agreement.Version, second.Agreement.Version)
}

// ---------- RecordVisit ----------

func TestRecordVisit(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.createEndingIn(t, 200*24*time.Hour)

	visitedAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	detail, err := f.svc.RecordVisit(context.Background(), testCompanyID, a.ID, &domain.RecordVisitRequest{
		JobReference: "JOB-1201",
		Technician:   "M. Reyes",
		VisitedAt:    &visitedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, detail.Agreement.VisitsUsed)
	assert.Equal(t, visitedAt, detail.Agreement.LastVisitDate.Time)
	// 2 included visits across a one-year term: next due half a term out.
	require.True(t, detail.Agreement.NextVisitDue.Valid)
	assert.Equal(t, visitedAt.Add(domain.TermLength/2), detail.Agreement.NextVisitDue.Time)

	visits, err := f.svc.Visits(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "JOB-1201", visits[0].JobReference.String)
}

func TestRecordVisitNonActive(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil) // PENDING

	_, err := f.svc.RecordVisit(context.Background(), testCompanyID, a.ID, &domain.RecordVisitRequest{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestRecordVisitOverrun(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.createEndingIn(t, 200*24*time.Hour)

	var detail *domain.Detail
	var err error
	for i := 0; i < 3; i++ {
		detail, err = f.svc.RecordVisit(context.Background(), testCompanyID, a.ID, &domain.RecordVisitRequest{})
		require.NoError(t, err)
	}

	// Plan includes 2 visits; the third is recorded, not rejected.
	assert.Equal(t, 3, detail.Agreement.VisitsUsed)
	assert.Equal(t, -1, detail.Usage.Remaining)
}

// ---------- tenancy and summary ----------

func TestGetWrongCompany(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.create(t, nil)

	_, err := f.svc.Get(context.Background(), testCompanyID+1, a.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestSummary(t *testing.T) {
	f := newFixture(t, Policy{})
	f.create(t, nil)
	a := f.create(t, nil)
	_, err := f.svc.Cancel(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	summary, err := f.svc.Summary(context.Background(), testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Pending)
	assert.Equal(t, int64(1), summary.Cancelled)
}
