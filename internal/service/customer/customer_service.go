package customer

import (
	"context"
	"database/sql"
	"fmt"

	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type CustomerService struct {
	customerRepo *postgres.CustomerRepository
	logger       *zap.Logger
}

func NewCustomerService(customerRepo *postgres.CustomerRepository, logger *zap.Logger) *CustomerService {
	return &CustomerService{customerRepo: customerRepo, logger: logger}
}

func (s *CustomerService) CreateCustomer(ctx context.Context, companyID int64, req *customer.CreateCustomerRequest) (*customer.Customer, error) {
	c := &customer.Customer{
		CompanyID: companyID,
		Name:      req.Name,
		Tags:      req.Tags,
	}
	applyOptional(c, req.Email, req.Phone, req.AddressLine, req.City, req.State, req.PostalCode)

	if err := s.customerRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created",
		zap.Int64("customer_id", c.ID),
		zap.Int64("company_id", companyID),
	)
	return c, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, companyID, id int64) (*customer.Customer, error) {
	return s.customerRepo.FindByID(ctx, companyID, id)
}

func (s *CustomerService) ListCustomers(ctx context.Context, companyID int64, filters *customer.ListFilters) (*customer.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	customers, total, err := s.customerRepo.List(ctx, companyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	totalPages := int((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	return &customer.ListResponse{
		Customers:  customers,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, companyID, id int64, req *customer.UpdateCustomerRequest) (*customer.Customer, error) {
	c, err := s.customerRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = nullable(*req.Email)
	}
	if req.Phone != nil {
		c.Phone = nullable(*req.Phone)
	}
	if req.AddressLine != nil {
		c.AddressLine = nullable(*req.AddressLine)
	}
	if req.City != nil {
		c.City = nullable(*req.City)
	}
	if req.State != nil {
		c.State = nullable(*req.State)
	}
	if req.PostalCode != nil {
		c.PostalCode = nullable(*req.PostalCode)
	}
	if req.Tags != nil {
		c.Tags = req.Tags
	}

	if err := s.customerRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("customer updated", zap.Int64("customer_id", c.ID))
	return c, nil
}

func applyOptional(c *customer.Customer, email, phone, address, city, state, postal string) {
	c.Email = nullable(email)
	c.Phone = nullable(phone)
	c.AddressLine = nullable(address)
	c.City = nullable(city)
	c.State = nullable(state)
	c.PostalCode = nullable(postal)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
