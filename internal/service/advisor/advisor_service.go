package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldserve-service/internal/domain/advisor"
	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/plan"
	xerrors "fieldserve-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdviceClient is the outbound contract to the external model.
type AdviceClient interface {
	Advise(ctx context.Context, requestID, kind string, input json.RawMessage) (json.RawMessage, error)
}

type AgreementReader interface {
	FindByID(ctx context.Context, companyID, id int64) (*agreement.ServiceAgreement, error)
	ListVisits(ctx context.Context, companyID, agreementID int64) ([]agreement.Visit, error)
}

type PlanReader interface {
	FindByID(ctx context.Context, companyID, id int64) (*plan.AgreementPlan, error)
}

type CustomerReader interface {
	FindByID(ctx context.Context, companyID, id int64) (*customer.Customer, error)
}

// AdvisorService relays advisory requests to the external model. The
// output is advisory only: it is returned to the dashboard and never
// written back into the store.
type AdvisorService struct {
	client        AdviceClient
	agreementRepo AgreementReader
	planRepo      PlanReader
	customerRepo  CustomerReader
	logger        *zap.Logger
}

func NewAdvisorService(
	client AdviceClient,
	agreementRepo AgreementReader,
	planRepo PlanReader,
	customerRepo CustomerReader,
	logger *zap.Logger,
) *AdvisorService {
	return &AdvisorService{
		client:        client,
		agreementRepo: agreementRepo,
		planRepo:      planRepo,
		customerRepo:  customerRepo,
		logger:        logger,
	}
}

// Advise forwards caller-supplied structured input for one advisory
// kind and returns the reply verbatim.
func (s *AdvisorService) Advise(ctx context.Context, kind advisor.Kind, input json.RawMessage) (*advisor.Advice, error) {
	if !advisor.ValidKind(kind) {
		return nil, fmt.Errorf("%w: unknown advisory kind %q", xerrors.ErrInvalidInput, kind)
	}

	requestID := uuid.NewString()
	started := time.Now()

	output, err := s.client.Advise(ctx, requestID, string(kind), input)
	if err != nil {
		s.logger.Error("advisory call failed",
			zap.String("request_id", requestID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("advisory call failed: %w", err)
	}

	s.logger.Info("advisory call completed",
		zap.String("request_id", requestID),
		zap.String("kind", string(kind)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &advisor.Advice{
		RequestID: requestID,
		Kind:      kind,
		Output:    output,
	}, nil
}

// maintenanceInput is the structured snapshot the model receives for a
// predictive-maintenance forecast.
type maintenanceInput struct {
	AgreementNumber string             `json:"agreement_number"`
	Status          string             `json:"status"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	Trade           string             `json:"trade"`
	PlanName        string             `json:"plan_name"`
	VisitsIncluded  int                `json:"visits_included"`
	VisitsUsed      int                `json:"visits_used"`
	CustomerName    string             `json:"customer_name"`
	City            string             `json:"city,omitempty"`
	Visits          []maintenanceVisit `json:"visits"`
}

type maintenanceVisit struct {
	VisitedAt    time.Time `json:"visited_at"`
	JobReference string    `json:"job_reference,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// AgreementMaintenance assembles an agreement's plan, customer and
// visit history into the forecast input and relays the model's reply.
func (s *AdvisorService) AgreementMaintenance(ctx context.Context, companyID, agreementID int64) (*advisor.Advice, error) {
	a, err := s.agreementRepo.FindByID(ctx, companyID, agreementID)
	if err != nil {
		return nil, err
	}
	p, err := s.planRepo.FindByID(ctx, companyID, a.PlanID)
	if err != nil {
		return nil, fmt.Errorf("agreement plan not found: %w", err)
	}
	cust, err := s.customerRepo.FindByID(ctx, companyID, a.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer not found: %w", err)
	}
	visits, err := s.agreementRepo.ListVisits(ctx, companyID, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit history: %w", err)
	}

	input := maintenanceInput{
		AgreementNumber: a.AgreementNumber,
		Status:          string(a.Status),
		StartDate:       a.StartDate,
		EndDate:         a.EndDate,
		Trade:           string(p.Trade),
		PlanName:        p.Name,
		VisitsIncluded:  p.VisitsIncluded,
		VisitsUsed:      a.VisitsUsed,
		CustomerName:    cust.Name,
		City:            cust.City.String,
	}
	for _, v := range visits {
		input.Visits = append(input.Visits, maintenanceVisit{
			VisitedAt:    v.VisitedAt,
			JobReference: v.JobReference.String,
			Notes:        v.Notes.String,
		})
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forecast input: %w", err)
	}

	return s.Advise(ctx, advisor.KindMaintenance, raw)
}
