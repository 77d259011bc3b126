package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/domain/model"
)

func TestPublicListCachesPerFilterSet(t *testing.T) {
	listCalls := 0
	cars := &stubCarRepo{
		list: func(_ context.Context, opts model.CarsListOptions) ([]*model.Car, error) {
			listCalls++
			require.NotNil(t, opts.Status)
			assert.Equal(t, model.CarStatusAvailable, *opts.Status)
			return []*model.Car{{ID: "v1", Plate: "AB123CD"}}, nil
		},
	}
	cache := newMemCache()
	svc := NewCarService(CarServiceOptions{Cars: cars, Cache: cache})

	first, err := svc.PublicList(context.Background(), model.CarsListOptions{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.PublicList(context.Background(), model.CarsListOptions{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "AB123CD", second[0].Plate)

	assert.Equal(t, 1, listCalls, "second page should come from cache")

	// Different filters miss the cache.
	brand := "b1"
	_, err = svc.PublicList(context.Background(), model.CarsListOptions{BrandID: &brand})
	require.NoError(t, err)
	assert.Equal(t, 2, listCalls)
}

func TestFleetWritesInvalidateListingsCache(t *testing.T) {
	cars := &stubCarRepo{
		list: func(context.Context, model.CarsListOptions) ([]*model.Car, error) {
			return []*model.Car{{ID: "v1"}}, nil
		},
		create: func(context.Context, *model.CreateCarRequest) (*model.Car, error) {
			return &model.Car{ID: "v2"}, nil
		},
	}
	cache := newMemCache()
	svc := NewCarService(CarServiceOptions{Cars: cars, Cache: cache})

	_, err := svc.PublicList(context.Background(), model.CarsListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.len())

	_, err = svc.Create(context.Background(), &model.CreateCarRequest{})
	require.NoError(t, err)

	assert.Equal(t, 0, cache.len(), "create should clear cached listing pages")
}

func TestPublicListDropsCorruptCacheEntry(t *testing.T) {
	cars := &stubCarRepo{
		list: func(context.Context, model.CarsListOptions) ([]*model.Car, error) {
			return []*model.Car{{ID: "v1"}}, nil
		},
	}
	cache := newMemCache()
	svc := NewCarService(CarServiceOptions{Cars: cars, Cache: cache})

	status := model.CarStatusAvailable
	key := listingsCacheKey(model.CarsListOptions{Status: &status})
	require.NoError(t, cache.Set(context.Background(), key, []byte("{not json"), 0))

	got, err := svc.PublicList(context.Background(), model.CarsListOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].ID)
}
