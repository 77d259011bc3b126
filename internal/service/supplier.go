package service

import (
	"context"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/domain/model"
)

// SupplierServiceOptions groups dependencies for SupplierService.
type SupplierServiceOptions struct {
	Suppliers core.SupplierRepository
}

// SupplierService provides supplier CRUD.
type SupplierService struct {
	suppliers core.SupplierRepository
}

// NewSupplierService constructs a new SupplierService.
func NewSupplierService(opts SupplierServiceOptions) *SupplierService {
	return &SupplierService{suppliers: opts.Suppliers}
}

// Create creates a supplier.
func (s *SupplierService) Create(ctx context.Context, req *model.CreateSupplierRequest) (*model.Supplier, error) {
	return s.suppliers.Create(ctx, req)
}

// GetByID retrieves a supplier by ID.
func (s *SupplierService) GetByID(ctx context.Context, id string) (*model.Supplier, error) {
	return s.suppliers.GetByID(ctx, id)
}

// List returns a page of suppliers.
func (s *SupplierService) List(ctx context.Context, limit, offset int) ([]*model.Supplier, error) {
	return s.suppliers.List(ctx, limit, offset)
}

// Update updates a supplier.
func (s *SupplierService) Update(ctx context.Context, id string, req model.UpdateSupplierRequest) (*model.Supplier, error) {
	return s.suppliers.Update(ctx, id, req)
}

// Delete deletes a supplier.
func (s *SupplierService) Delete(ctx context.Context, id string) (bool, error) {
	return s.suppliers.Delete(ctx, id)
}
