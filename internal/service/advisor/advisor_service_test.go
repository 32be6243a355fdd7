package advisor

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainadvisor "fieldserve-service/internal/domain/advisor"
	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/plan"
	xerrors "fieldserve-service/internal/pkg/errors"
)

type capturingClient struct {
	lastKind  string
	lastInput json.RawMessage
	output    json.RawMessage
}

func (c *capturingClient) Advise(_ context.Context, _, kind string, input json.RawMessage) (json.RawMessage, error) {
	c.lastKind = kind
	c.lastInput = input
	return c.output, nil
}

type stubAgreements struct {
	agreement *agreement.ServiceAgreement
	visits    []agreement.Visit
}

func (s *stubAgreements) FindByID(_ context.Context, _, _ int64) (*agreement.ServiceAgreement, error) {
	if s.agreement == nil {
		return nil, xerrors.ErrNotFound
	}
	return s.agreement, nil
}

func (s *stubAgreements) ListVisits(_ context.Context, _, _ int64) ([]agreement.Visit, error) {
	return s.visits, nil
}

type stubPlans struct{ plan *plan.AgreementPlan }

func (s *stubPlans) FindByID(_ context.Context, _, _ int64) (*plan.AgreementPlan, error) {
	return s.plan, nil
}

type stubCustomers struct{ customer *customer.Customer }

func (s *stubCustomers) FindByID(_ context.Context, _, _ int64) (*customer.Customer, error) {
	return s.customer, nil
}

func TestAdviseUnknownKind(t *testing.T) {
	svc := NewAdvisorService(&capturingClient{}, &stubAgreements{}, &stubPlans{}, &stubCustomers{}, zap.NewNop())

	_, err := svc.Advise(context.Background(), domainadvisor.Kind("fortune"), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestAdvisePassthrough(t *testing.T) {
	cl := &capturingClient{output: json.RawMessage(`{"eta_minutes":45}`)}
	svc := NewAdvisorService(cl, &stubAgreements{}, &stubPlans{}, &stubCustomers{}, zap.NewNop())

	advice, err := svc.Advise(context.Background(), domainadvisor.KindDispatch, json.RawMessage(`{"job_id":12}`))
	require.NoError(t, err)

	assert.Equal(t, "dispatch", cl.lastKind)
	assert.NotEmpty(t, advice.RequestID)
	assert.Equal(t, domainadvisor.KindDispatch, advice.Kind)
	assert.JSONEq(t, `{"eta_minutes":45}`, string(advice.Output))
}

func TestAgreementMaintenanceAssemblesInput(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	agreements := &stubAgreements{
		agreement: &agreement.ServiceAgreement{
			ID:              1,
			AgreementNumber: "SA-01HTEST",
			Status:          agreement.StatusActive,
			StartDate:       start,
			EndDate:         start.AddDate(1, 0, 0),
			PlanID:          1,
			CustomerID:      1,
			VisitsUsed:      1,
		},
		visits: []agreement.Visit{
			{
				VisitedAt:    start.AddDate(0, 2, 0),
				JobReference: sql.NullString{String: "JOB-1201", Valid: true},
				Notes:        sql.NullString{String: "Replaced filter", Valid: true},
			},
		},
	}
	plans := &stubPlans{plan: &plan.AgreementPlan{
		Name:           "Gold HVAC Plan",
		Trade:          plan.TradeHVAC,
		VisitsIncluded: 2,
	}}
	customers := &stubCustomers{customer: &customer.Customer{
		Name: "Dana Whitfield",
		City: sql.NullString{String: "Springfield", Valid: true},
	}}

	cl := &capturingClient{output: json.RawMessage(`{"risk":"low"}`)}
	svc := NewAdvisorService(cl, agreements, plans, customers, zap.NewNop())

	advice, err := svc.AgreementMaintenance(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, "maintenance", cl.lastKind)
	assert.Equal(t, domainadvisor.KindMaintenance, advice.Kind)

	var input maintenanceInput
	require.NoError(t, json.Unmarshal(cl.lastInput, &input))
	assert.Equal(t, "SA-01HTEST", input.AgreementNumber)
	assert.Equal(t, "hvac", input.Trade)
	assert.Equal(t, "Dana Whitfield", input.CustomerName)
	assert.Equal(t, "Springfield", input.City)
	require.Len(t, input.Visits, 1)
	assert.Equal(t, "JOB-1201", input.Visits[0].JobReference)
}
