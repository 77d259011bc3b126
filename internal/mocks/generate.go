// Package mocks provides gomock mocks for the repository ports in internal/core.
//
// Mocks are generated with go.uber.org/mock (gomock) via the go:generate
// directives below and checked in so tests build without codegen. After an
// interface change, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockCarRepository(ctrl)
//	repo.EXPECT().GetByID(gomock.Any(), "v1").Return(car, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=core_repository_mock.go github.com/dealerops/rentd/internal/core CarRepository,CustomerRepository,SupplierRepository,ReservationRepository,PaymentRepository,LeadRepository,LeadRuleRepository
