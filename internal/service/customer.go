package service

import (
	"context"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/domain/model"
)

// CustomerServiceOptions groups dependencies for CustomerService.
type CustomerServiceOptions struct {
	Customers core.CustomerRepository
}

// CustomerService provides customer CRUD.
type CustomerService struct {
	customers core.CustomerRepository
}

// NewCustomerService constructs a new CustomerService.
func NewCustomerService(opts CustomerServiceOptions) *CustomerService {
	return &CustomerService{customers: opts.Customers}
}

// Create creates a customer.
func (s *CustomerService) Create(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error) {
	return s.customers.Create(ctx, req)
}

// GetByID retrieves a customer by ID.
func (s *CustomerService) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	return s.customers.GetByID(ctx, id)
}

// List returns a page of customers, optionally filtered by a search term.
func (s *CustomerService) List(ctx context.Context, limit, offset int, q *string) ([]*model.Customer, error) {
	return s.customers.List(ctx, limit, offset, q)
}

// Update updates a customer.
func (s *CustomerService) Update(ctx context.Context, id string, req model.UpdateCustomerRequest) (*model.Customer, error) {
	return s.customers.Update(ctx, id, req)
}

// Delete deletes a customer.
func (s *CustomerService) Delete(ctx context.Context, id string) (bool, error) {
	return s.customers.Delete(ctx, id)
}
