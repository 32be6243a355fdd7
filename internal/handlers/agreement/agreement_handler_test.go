package agreement

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/notification"
	"fieldserve-service/internal/domain/plan"
	"fieldserve-service/internal/pdf"
	xerrors "fieldserve-service/internal/pkg/errors"
	service "fieldserve-service/internal/service/agreement"
)

const testCompanyID int64 = 3

type stubStore struct {
	agreement *domain.ServiceAgreement
	plan      *plan.AgreementPlan
	customer  *customer.Customer
	visits    []domain.Visit
}

func (s *stubStore) Create(_ context.Context, a *domain.ServiceAgreement) error {
	a.ID = 1
	a.Version = 1
	s.agreement = a
	return nil
}

func (s *stubStore) FindByID(_ context.Context, companyID, id int64) (*domain.ServiceAgreement, error) {
	if s.agreement == nil || s.agreement.ID != id || s.agreement.CompanyID != companyID {
		return nil, xerrors.ErrNotFound
	}
	cp := *s.agreement
	return &cp, nil
}

func (s *stubStore) Update(_ context.Context, a *domain.ServiceAgreement, expectedVersion int64) error {
	if s.agreement.Version != expectedVersion {
		return xerrors.ErrConflict
	}
	a.Version = expectedVersion + 1
	cp := *a
	s.agreement = &cp
	return nil
}

func (s *stubStore) RecordVisit(ctx context.Context, a *domain.ServiceAgreement, expectedVersion int64, v *domain.Visit) error {
	if err := s.Update(ctx, a, expectedVersion); err != nil {
		return err
	}
	s.visits = append(s.visits, *v)
	return nil
}

func (s *stubStore) ListVisits(_ context.Context, _, _ int64) ([]domain.Visit, error) {
	return s.visits, nil
}

func (s *stubStore) List(_ context.Context, _ int64, _ *domain.ListFilters, _ time.Time) ([]domain.ServiceAgreement, int64, error) {
	if s.agreement == nil {
		return nil, 0, nil
	}
	return []domain.ServiceAgreement{*s.agreement}, 1, nil
}

func (s *stubStore) FindDue(_ context.Context, _ time.Time) ([]domain.ServiceAgreement, error) {
	return nil, nil
}

func (s *stubStore) FindEnteringWindow(_ context.Context, _ time.Time) ([]domain.ServiceAgreement, error) {
	return nil, nil
}

func (s *stubStore) MarkExpiryNotified(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func (s *stubStore) Summary(_ context.Context, _ int64, _ time.Time) (*domain.Summary, error) {
	return &domain.Summary{Total: 1}, nil
}

type stubPlans struct{ plan *plan.AgreementPlan }

func (s *stubPlans) FindByID(_ context.Context, _, _ int64) (*plan.AgreementPlan, error) {
	return s.plan, nil
}

type stubCustomers struct{ customer *customer.Customer }

func (s *stubCustomers) FindByID(_ context.Context, _, _ int64) (*customer.Customer, error) {
	return s.customer, nil
}

type noopNotifier struct{}

func (noopNotifier) AgreementEvent(context.Context, *domain.ServiceAgreement, notification.Type, string, string) {
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &stubStore{
		plan:     &plan.AgreementPlan{ID: 1, CompanyID: testCompanyID, Name: "Gold", Trade: plan.TradeHVAC, VisitsIncluded: 2, Active: true},
		customer: &customer.Customer{ID: 1, CompanyID: testCompanyID, Name: "Dana Whitfield"},
	}
	store.agreement = &domain.ServiceAgreement{
		ID:              1,
		AgreementNumber: "SA-TEST",
		CompanyID:       testCompanyID,
		CustomerID:      1,
		PlanID:          1,
		Status:          domain.StatusActive,
		StartDate:       time.Now().AddDate(-1, 0, 2),
		EndDate:         time.Now().AddDate(0, 0, 2),
		Version:         1,
	}

	svc := service.NewService(
		store,
		&stubPlans{plan: store.plan},
		&stubCustomers{customer: store.customer},
		noopNotifier{},
		service.Policy{ResetVisitsOnRenew: true},
		zap.NewNop(),
	)
	handler := NewAgreementHandler(svc, pdf.NewGenerator())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", int64(1))
		c.Set("company_id", testCompanyID)
		c.Set("role", "ADMIN")
	})
	agreements := r.Group("/agreements")
	{
		agreements.GET("/:id", handler.GetAgreement)
		agreements.PUT("/:id", handler.UpdateAgreement)
		agreements.POST("/:id/renew", handler.RenewAgreement)
		agreements.POST("/:id/cancel", handler.CancelAgreement)
		agreements.POST("/:id/visits", handler.RecordVisit)
		agreements.GET("/:id/pdf", handler.DownloadPDF)
	}
	r.GET("/customers/:id/agreements", handler.ListCustomerAgreements)
	return r, store
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetAgreement(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/agreements/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    domain.Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "SA-TEST", resp.Data.Agreement.AgreementNumber)
	assert.True(t, resp.Data.CanRenew)
}

func TestGetAgreementNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/agreements/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStaleVersionConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPut, "/agreements/1", gin.H{"notes": "x", "version": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateMissingVersionRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	// Version is a required binding field.
	w := do(r, http.MethodPut, "/agreements/1", gin.H{"notes": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateIllegalTransition(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPut, "/agreements/1", gin.H{"status": "PENDING", "version": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRenewOutsideWindow(t *testing.T) {
	r, store := newTestRouter(t)
	store.agreement.EndDate = time.Now().AddDate(0, 6, 0)

	w := do(r, http.MethodPost, "/agreements/1/renew", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRenewInsideWindow(t *testing.T) {
	r, store := newTestRouter(t)
	oldEnd := store.agreement.EndDate

	w := do(r, http.MethodPost, "/agreements/1/renew", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, oldEnd.AddDate(1, 0, 0), store.agreement.EndDate)
}

func TestCancelIdempotent(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodPost, "/agreements/1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusCancelled, store.agreement.Status)

	w = do(r, http.MethodPost, "/agreements/1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecordVisitOnActive(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodPost, "/agreements/1/visits", gin.H{"job_reference": "JOB-9"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, store.agreement.VisitsUsed)
}

func TestRecordVisitOnCancelled(t *testing.T) {
	r, store := newTestRouter(t)
	store.agreement.Status = domain.StatusCancelled

	w := do(r, http.MethodPost, "/agreements/1/visits", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCustomerAgreements(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/customers/1/agreements", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    domain.ListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Agreements, 1)
	assert.Equal(t, "SA-TEST", resp.Data.Agreements[0].AgreementNumber)
}

func TestDownloadPDF(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/agreements/1/pdf", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}
