package service

import (
	"context"
	"database/sql"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/observability/notify"
)

// Hand-written stubs with function fields. A nil field means the test does
// not expect that call; invoking it panics with the method name.

type stubCarRepo struct {
	create       func(ctx context.Context, req *model.CreateCarRequest) (*model.Car, error)
	getByID      func(ctx context.Context, id string) (*model.Car, error)
	getByPlate   func(ctx context.Context, plate string) (*model.Car, error)
	list         func(ctx context.Context, opts model.CarsListOptions) ([]*model.Car, error)
	update       func(ctx context.Context, id string, req model.UpdateCarRequest) (*model.Car, error)
	updateStatus func(ctx context.Context, id string, status model.CarStatus) (*model.Car, error)
	del          func(ctx context.Context, id string) (bool, error)
}

func (s *stubCarRepo) Create(ctx context.Context, req *model.CreateCarRequest) (*model.Car, error) {
	if s.create == nil {
		panic("unexpected CarRepo.Create")
	}
	return s.create(ctx, req)
}

func (s *stubCarRepo) GetByID(ctx context.Context, id string) (*model.Car, error) {
	if s.getByID == nil {
		panic("unexpected CarRepo.GetByID")
	}
	return s.getByID(ctx, id)
}

func (s *stubCarRepo) GetByPlate(ctx context.Context, plate string) (*model.Car, error) {
	if s.getByPlate == nil {
		panic("unexpected CarRepo.GetByPlate")
	}
	return s.getByPlate(ctx, plate)
}

func (s *stubCarRepo) List(ctx context.Context, opts model.CarsListOptions) ([]*model.Car, error) {
	if s.list == nil {
		panic("unexpected CarRepo.List")
	}
	return s.list(ctx, opts)
}

func (s *stubCarRepo) Update(ctx context.Context, id string, req model.UpdateCarRequest) (*model.Car, error) {
	if s.update == nil {
		panic("unexpected CarRepo.Update")
	}
	return s.update(ctx, id, req)
}

func (s *stubCarRepo) UpdateStatus(ctx context.Context, id string, status model.CarStatus) (*model.Car, error) {
	if s.updateStatus == nil {
		panic("unexpected CarRepo.UpdateStatus")
	}
	return s.updateStatus(ctx, id, status)
}

func (s *stubCarRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.del == nil {
		panic("unexpected CarRepo.Delete")
	}
	return s.del(ctx, id)
}

type stubReservationRepo struct {
	create         func(ctx context.Context, p data.CreateReservationParams) (*model.Reservation, error)
	getByID        func(ctx context.Context, id string) (*model.Reservation, error)
	list           func(ctx context.Context, opts model.ReservationsListOptions) ([]*model.Reservation, error)
	update         func(ctx context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error)
	extendDates    func(ctx context.Context, id string, newEnd time.Time, total int64, pct float64, cents int64) (*model.Reservation, error)
	del            func(ctx context.Context, id string) (bool, error)
	monthlyBilling func(ctx context.Context, from, to time.Time) ([]data.MonthlyBillingRow, error)
}

func (s *stubReservationRepo) Create(ctx context.Context, p data.CreateReservationParams) (*model.Reservation, error) {
	if s.create == nil {
		panic("unexpected ReservationRepo.Create")
	}
	return s.create(ctx, p)
}

func (s *stubReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if s.getByID == nil {
		panic("unexpected ReservationRepo.GetByID")
	}
	return s.getByID(ctx, id)
}

func (s *stubReservationRepo) List(ctx context.Context, opts model.ReservationsListOptions) ([]*model.Reservation, error) {
	if s.list == nil {
		panic("unexpected ReservationRepo.List")
	}
	return s.list(ctx, opts)
}

func (s *stubReservationRepo) Update(ctx context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error) {
	if s.update == nil {
		panic("unexpected ReservationRepo.Update")
	}
	return s.update(ctx, id, req)
}

func (s *stubReservationRepo) ExtendDates(
	ctx context.Context,
	id string,
	newEndDate time.Time,
	totalCents int64,
	commissionPercent float64,
	commissionCents int64,
) (*model.Reservation, error) {
	if s.extendDates == nil {
		panic("unexpected ReservationRepo.ExtendDates")
	}
	return s.extendDates(ctx, id, newEndDate, totalCents, commissionPercent, commissionCents)
}

func (s *stubReservationRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.del == nil {
		panic("unexpected ReservationRepo.Delete")
	}
	return s.del(ctx, id)
}

func (s *stubReservationRepo) MonthlyBilling(ctx context.Context, from, to time.Time) ([]data.MonthlyBillingRow, error) {
	if s.monthlyBilling == nil {
		panic("unexpected ReservationRepo.MonthlyBilling")
	}
	return s.monthlyBilling(ctx, from, to)
}

type stubPaymentRepo struct {
	create            func(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error)
	getByID           func(ctx context.Context, id string) (*model.Payment, error)
	list              func(ctx context.Context, opts model.PaymentsListOptions) ([]*model.Payment, error)
	del               func(ctx context.Context, id string) (bool, error)
	monthlyRevenue    func(ctx context.Context, from, to time.Time) ([]data.MonthlyRevenueRow, error)
	sumForReservation func(ctx context.Context, reservationID string) (int64, error)
}

func (s *stubPaymentRepo) Create(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error) {
	if s.create == nil {
		panic("unexpected PaymentRepo.Create")
	}
	return s.create(ctx, req)
}

func (s *stubPaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	if s.getByID == nil {
		panic("unexpected PaymentRepo.GetByID")
	}
	return s.getByID(ctx, id)
}

func (s *stubPaymentRepo) List(ctx context.Context, opts model.PaymentsListOptions) ([]*model.Payment, error) {
	if s.list == nil {
		panic("unexpected PaymentRepo.List")
	}
	return s.list(ctx, opts)
}

func (s *stubPaymentRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.del == nil {
		panic("unexpected PaymentRepo.Delete")
	}
	return s.del(ctx, id)
}

func (s *stubPaymentRepo) MonthlyRevenue(ctx context.Context, from, to time.Time) ([]data.MonthlyRevenueRow, error) {
	if s.monthlyRevenue == nil {
		panic("unexpected PaymentRepo.MonthlyRevenue")
	}
	return s.monthlyRevenue(ctx, from, to)
}

func (s *stubPaymentRepo) SumForReservation(ctx context.Context, reservationID string) (int64, error) {
	if s.sumForReservation == nil {
		panic("unexpected PaymentRepo.SumForReservation")
	}
	return s.sumForReservation(ctx, reservationID)
}

type stubLeadRepo struct {
	create  func(ctx context.Context, p data.CreateLeadParams) (*model.Lead, error)
	getByID func(ctx context.Context, id string) (*model.Lead, error)
	list    func(ctx context.Context, opts model.LeadsListOptions) ([]*model.Lead, error)
	update  func(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error)
	del     func(ctx context.Context, id string) (bool, error)
}

func (s *stubLeadRepo) Create(ctx context.Context, p data.CreateLeadParams) (*model.Lead, error) {
	if s.create == nil {
		panic("unexpected LeadRepo.Create")
	}
	return s.create(ctx, p)
}

func (s *stubLeadRepo) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	if s.getByID == nil {
		panic("unexpected LeadRepo.GetByID")
	}
	return s.getByID(ctx, id)
}

func (s *stubLeadRepo) List(ctx context.Context, opts model.LeadsListOptions) ([]*model.Lead, error) {
	if s.list == nil {
		panic("unexpected LeadRepo.List")
	}
	return s.list(ctx, opts)
}

func (s *stubLeadRepo) Update(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error) {
	if s.update == nil {
		panic("unexpected LeadRepo.Update")
	}
	return s.update(ctx, id, req)
}

func (s *stubLeadRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.del == nil {
		panic("unexpected LeadRepo.Delete")
	}
	return s.del(ctx, id)
}

type stubLeadRuleRepo struct {
	create      func(ctx context.Context, req *model.CreateLeadRuleRequest) (*model.LeadRule, error)
	getByID     func(ctx context.Context, id string) (*model.LeadRule, error)
	listEnabled func(ctx context.Context) ([]*model.LeadRule, error)
	listAll     func(ctx context.Context) ([]*model.LeadRule, error)
	setEnabled  func(ctx context.Context, id string, enabled bool) (*model.LeadRule, error)
	del         func(ctx context.Context, id string) (bool, error)
}

func (s *stubLeadRuleRepo) Create(ctx context.Context, req *model.CreateLeadRuleRequest) (*model.LeadRule, error) {
	if s.create == nil {
		panic("unexpected LeadRuleRepo.Create")
	}
	return s.create(ctx, req)
}

func (s *stubLeadRuleRepo) GetByID(ctx context.Context, id string) (*model.LeadRule, error) {
	if s.getByID == nil {
		panic("unexpected LeadRuleRepo.GetByID")
	}
	return s.getByID(ctx, id)
}

func (s *stubLeadRuleRepo) ListEnabled(ctx context.Context) ([]*model.LeadRule, error) {
	if s.listEnabled == nil {
		panic("unexpected LeadRuleRepo.ListEnabled")
	}
	return s.listEnabled(ctx)
}

func (s *stubLeadRuleRepo) ListAll(ctx context.Context) ([]*model.LeadRule, error) {
	if s.listAll == nil {
		panic("unexpected LeadRuleRepo.ListAll")
	}
	return s.listAll(ctx)
}

func (s *stubLeadRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) (*model.LeadRule, error) {
	if s.setEnabled == nil {
		panic("unexpected LeadRuleRepo.SetEnabled")
	}
	return s.setEnabled(ctx, id, enabled)
}

func (s *stubLeadRuleRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.del == nil {
		panic("unexpected LeadRuleRepo.Delete")
	}
	return s.del(ctx, id)
}

// memCache is an in-memory core.CacheRepository good enough for service tests.
type memCache struct {
	mu      stdsync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *memCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok, nil
}

func (c *memCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			n++
		}
	}
	return n, nil
}

func (c *memCache) SetIfNotExists(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false, nil
	}
	c.entries[key] = value
	return true, nil
}

func (c *memCache) Health(context.Context) error { return nil }

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// recordingSink captures notification events.
type recordingSink struct {
	mu     stdsync.Mutex
	events []notify.Event
	err    error
}

func (s *recordingSink) Send(_ context.Context, event notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) sent() []notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Event, len(s.events))
	copy(out, s.events)
	return out
}

// stubTaskRepo drives the scheduler without a database. The *sql.Tx passed to
// callbacks is nil; the stub never touches it.
type stubTaskRepo struct {
	mu       stdsync.Mutex
	due      []model.ScheduledTask
	queued   []string
	upserted map[string]time.Duration
	deleted  []string
	locked   bool
}

func newStubTaskRepo(due ...model.ScheduledTask) *stubTaskRepo {
	return &stubTaskRepo{due: due, upserted: make(map[string]time.Duration)}
}

func (s *stubTaskRepo) FindDueTx(_ context.Context, _ *sql.Tx, _ time.Time, limit int) ([]model.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.due) > limit {
		return s.due[:limit], nil
	}
	return s.due, nil
}

func (s *stubTaskRepo) MarkQueuedTx(_ context.Context, _ *sql.Tx, id string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, id)
	return true, nil
}

func (s *stubTaskRepo) UpsertByTaskName(_ context.Context, taskName string, interval time.Duration, _ json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted[taskName] = interval
	return nil
}

func (s *stubTaskRepo) DeleteByTaskName(_ context.Context, taskName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, taskName)
	return true, nil
}

func (s *stubTaskRepo) TryWithTaskLock(ctx context.Context, _ string, fn func(context.Context, *sql.Tx) error) (bool, error) {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()
	return true, fn(ctx, nil)
}
