package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/domain/model"
)

// listingsCachePrefix namespaces cached public listing pages. Keys encode the
// filter set, so invalidation clears the whole prefix.
const listingsCachePrefix = "listings:cars:"

// CarServiceOptions groups dependencies for CarService.
type CarServiceOptions struct {
	Cars     core.CarRepository
	Cache    core.CacheRepository
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// CarService orchestrates fleet CRUD and the cached public listing.
type CarService struct {
	cars     core.CarRepository
	cache    core.CacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewCarService constructs a new CarService. Cache is optional; without it
// public listings go straight to the database.
func NewCarService(opts CarServiceOptions) *CarService {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CarService{
		cars:     opts.Cars,
		cache:    opts.Cache,
		cacheTTL: ttl,
		logger:   logger.With("component", "cars"),
	}
}

// Create adds a car to the fleet and invalidates the public listing cache.
func (s *CarService) Create(ctx context.Context, req *model.CreateCarRequest) (*model.Car, error) {
	car, err := s.cars.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return car, nil
}

// GetByID retrieves a car by ID.
func (s *CarService) GetByID(ctx context.Context, id string) (*model.Car, error) {
	return s.cars.GetByID(ctx, id)
}

// GetByPlate retrieves a car by license plate.
func (s *CarService) GetByPlate(ctx context.Context, plate string) (*model.Car, error) {
	return s.cars.GetByPlate(ctx, plate)
}

// List returns cars for the admin UI, uncached.
func (s *CarService) List(ctx context.Context, opts model.CarsListOptions) ([]*model.Car, error) {
	return s.cars.List(ctx, opts)
}

// Update updates a car and invalidates the public listing cache.
func (s *CarService) Update(ctx context.Context, id string, req model.UpdateCarRequest) (*model.Car, error) {
	car, err := s.cars.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return car, nil
}

// Delete removes a car and invalidates the public listing cache.
func (s *CarService) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.cars.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.invalidateListings(ctx)
	return ok, nil
}

// PublicList serves the unauthenticated listing. Results are cached per
// filter set; only available cars are shown unless a status filter is given.
func (s *CarService) PublicList(ctx context.Context, opts model.CarsListOptions) ([]*model.Car, error) {
	if opts.Status == nil {
		status := model.CarStatusAvailable
		opts.Status = &status
	}

	key := listingsCacheKey(opts)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "listings cache read failed", "err", err)
		} else if cached != nil {
			var cars []*model.Car
			if err := json.Unmarshal(cached, &cars); err == nil {
				return cars, nil
			}
			s.logger.WarnContext(ctx, "listings cache entry corrupt, dropping", "key", key)
			_, _ = s.cache.Delete(ctx, key)
		}
	}

	cars, err := s.cars.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(cars); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
				s.logger.WarnContext(ctx, "listings cache write failed", "err", err)
			}
		}
	}
	return cars, nil
}

// WarmListings refreshes the default public listing page. The scheduler runs
// this so the first visitor after an invalidation doesn't pay the DB cost.
func (s *CarService) WarmListings(ctx context.Context) error {
	_, err := s.PublicList(ctx, model.CarsListOptions{})
	return err
}

func (s *CarService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeleteByPrefix(ctx, listingsCachePrefix); err != nil {
		s.logger.WarnContext(ctx, "listings cache invalidation failed", "err", err)
	}
}

func listingsCacheKey(opts model.CarsListOptions) string {
	brand := ""
	if opts.BrandID != nil {
		brand = *opts.BrandID
	}
	status := ""
	if opts.Status != nil {
		status = string(*opts.Status)
	}
	maxRate := ""
	if opts.MaxRateCents != nil {
		maxRate = strconv.FormatInt(*opts.MaxRateCents, 10)
	}
	return fmt.Sprintf("%sb=%s;s=%s;r=%s;l=%d;o=%d",
		listingsCachePrefix, brand, status, maxRate, opts.Limit, opts.Offset)
}
