package plan

import (
	"context"
	"database/sql"
	"fmt"

	"fieldserve-service/internal/domain/plan"
	"fieldserve-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type PlanService struct {
	planRepo *postgres.PlanRepository
	logger   *zap.Logger
}

func NewPlanService(planRepo *postgres.PlanRepository, logger *zap.Logger) *PlanService {
	return &PlanService{planRepo: planRepo, logger: logger}
}

func (s *PlanService) CreatePlan(ctx context.Context, companyID int64, req *plan.CreatePlanRequest) (*plan.AgreementPlan, error) {
	p := &plan.AgreementPlan{
		CompanyID:        companyID,
		Code:             req.Code,
		Name:             req.Name,
		Trade:            req.Trade,
		MonthlyPrice:     req.MonthlyPrice,
		AnnualPrice:      req.AnnualPrice,
		DiscountPct:      req.DiscountPct,
		VisitsIncluded:   req.VisitsIncluded,
		PriorityService:  req.PriorityService,
		NoDiagnosticFee:  req.NoDiagnosticFee,
		IncludedServices: req.IncludedServices,
		Active:           true,
	}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.planRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	s.logger.Info("agreement plan created",
		zap.Int64("plan_id", p.ID),
		zap.Int64("company_id", companyID),
		zap.String("code", p.Code),
		zap.String("trade", string(p.Trade)),
	)
	return p, nil
}

func (s *PlanService) GetPlan(ctx context.Context, companyID, id int64) (*plan.AgreementPlan, error) {
	return s.planRepo.FindByID(ctx, companyID, id)
}

func (s *PlanService) ListPlans(ctx context.Context, companyID int64, filters *plan.ListFilters) (*plan.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	plans, total, err := s.planRepo.List(ctx, companyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	totalPages := int((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	return &plan.ListResponse{
		Plans:      plans,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *PlanService) UpdatePlan(ctx context.Context, companyID, id int64, req *plan.UpdatePlanRequest) (*plan.AgreementPlan, error) {
	p, err := s.planRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.MonthlyPrice != nil {
		p.MonthlyPrice = *req.MonthlyPrice
	}
	if req.AnnualPrice != nil {
		p.AnnualPrice = *req.AnnualPrice
	}
	if req.DiscountPct != nil {
		p.DiscountPct = *req.DiscountPct
	}
	if req.VisitsIncluded != nil {
		p.VisitsIncluded = *req.VisitsIncluded
	}
	if req.PriorityService != nil {
		p.PriorityService = *req.PriorityService
	}
	if req.NoDiagnosticFee != nil {
		p.NoDiagnosticFee = *req.NoDiagnosticFee
	}
	if req.IncludedServices != nil {
		p.IncludedServices = req.IncludedServices
	}

	if err := s.planRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("agreement plan updated", zap.Int64("plan_id", p.ID))
	return p, nil
}

// DeactivatePlan blocks new agreements against the plan. Existing
// agreements keep referencing it.
func (s *PlanService) DeactivatePlan(ctx context.Context, companyID, id int64) error {
	if err := s.planRepo.Deactivate(ctx, companyID, id); err != nil {
		return err
	}
	s.logger.Info("agreement plan deactivated", zap.Int64("plan_id", id))
	return nil
}
