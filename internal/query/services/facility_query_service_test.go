package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

func expectListing(store *MockFacilityStore, total int64, data []entities.Facility) {
	store.On("Count", mock.Anything, mock.Anything).Return(total, nil)
	store.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(data, nil)
}

// Test 1: a miss reads the store and populates the cache with the unfiltered tier
func TestFacilityQueryService_GetFacilities_MissThenHit(t *testing.T) {
	// Arrange
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	expectListing(store, 2, sampleFacilities())

	// Act
	first, status, err := service.GetFacilitiesWithStatus(context.Background(), entities.FacilityQuery{})
	require.NoError(t, err)
	second, secondStatus, err := service.GetFacilitiesWithStatus(context.Background(), entities.FacilityQuery{Page: 1})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, CacheMiss, status)
	assert.Equal(t, CacheHit, secondStatus)
	assert.Equal(t, first, second)
	store.AssertNumberOfCalls(t, "Count", 1)
	store.AssertNumberOfCalls(t, "Find", 1)

	nq, _ := service.Normalize(entities.FacilityQuery{})
	assert.Equal(t, 600*time.Second, cache.ttls[ListCacheKey(nq).Stored])
}

// Test 2: a failing cache read still returns store data
func TestFacilityQueryService_GetFacilities_CacheGetFailure(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	cache.getErr = apperrors.NewCacheUnavailableError("failed to get from cache", errors.New("dial tcp: refused"))
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	expectListing(store, 2, sampleFacilities())

	result, status, err := service.GetFacilitiesWithStatus(context.Background(), entities.FacilityQuery{Name: "city"})

	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.Len(t, result.Data, 2)
}

// Test 3: a failing cache write is dropped
func TestFacilityQueryService_GetFacilities_CacheSetFailure(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	cache.setErr = errors.New("OOM command not allowed")
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	expectListing(store, 2, sampleFacilities())

	result, _, err := service.GetFacilitiesWithStatus(context.Background(), entities.FacilityQuery{})

	require.NoError(t, err)
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 1, cache.setCount())
}

// Test 4: pages beyond the eligible depth bypass both read and write
func TestFacilityQueryService_GetFacilities_Bypass(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	expectListing(store, 200, sampleFacilities())

	_, status, err := service.GetFacilitiesWithStatus(context.Background(), entities.FacilityQuery{Page: 4})
	require.NoError(t, err)
	assert.Equal(t, CacheBypass, status)

	_, status, err = service.GetFacilitiesWithStatus(context.Background(), entities.FacilityQuery{Page: 3, Name: "gym"})
	require.NoError(t, err)
	assert.Equal(t, CacheBypass, status)

	assert.Equal(t, 0, cache.gets)
	assert.Equal(t, 0, cache.setCount())
}

// Test 5: filtered pages use the filtered tier
func TestFacilityQueryService_GetFacilities_FilteredTTL(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	expectListing(store, 1, sampleFacilities()[:1])

	q := entities.FacilityQuery{Amenities: []string{"Pool"}, Page: 2}
	_, _, err := service.GetFacilitiesWithStatus(context.Background(), q)
	require.NoError(t, err)

	nq, _ := service.Normalize(q)
	assert.Equal(t, 120*time.Second, cache.ttls[ListCacheKey(nq).Stored])
}

// Test 6: invalid input is rejected before touching the cache or store
func TestFacilityQueryService_GetFacilities_ValidationError(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())

	_, err := service.GetFacilities(context.Background(), entities.FacilityQuery{AmenityMatchMode: "MOST"})

	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, cache.gets)
	store.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

// Test 7: store failures surface as store unavailable and are not cached
func TestFacilityQueryService_GetFacilities_StoreFailure(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	store.On("Count", mock.Anything, mock.Anything).Return(int64(0), errors.New("timeout"))
	store.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()

	_, err := service.GetFacilities(context.Background(), entities.FacilityQuery{})

	assert.Equal(t, apperrors.ErrorTypeStoreUnavailable, apperrors.TypeOf(err))
	assert.Equal(t, 0, cache.setCount())
}

// Test 8: identical concurrent misses run the store query once
func TestFacilityQueryService_GetFacilities_CollapsesConcurrentMisses(t *testing.T) {
	store := new(MockFacilityStore)
	service := NewFacilityQueryService(store, nil, testQueryConfig())

	release := make(chan struct{})
	store.On("Count", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(int64(2), nil)
	store.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(sampleFacilities(), nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*entities.PaginatedResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := service.GetFacilities(context.Background(), entities.FacilityQuery{Name: "gym"})
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	store.AssertNumberOfCalls(t, "Count", 1)
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

// Test 9: single item hit, miss and not found
func TestFacilityQueryService_GetFacilityByID(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	facility := sampleFacilities()[0]
	store.On("FindByID", mock.Anything, "f-1").Return(&facility, nil).Once()

	got, status, err := service.GetFacilityByIDWithStatus(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.Equal(t, facility, *got)
	assert.Equal(t, 300*time.Second, cache.ttls[ItemCacheKey("f-1").Stored])

	got, status, err = service.GetFacilityByIDWithStatus(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Equal(t, facility, *got)
	store.AssertExpectations(t)
}

// Test 10: absent facilities are not found and never cached
func TestFacilityQueryService_GetFacilityByID_NotFound(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	store.On("FindByID", mock.Anything, "nope").Return(nil, nil)

	_, err := service.GetFacilityByID(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = service.GetFacilityByID(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	assert.Equal(t, 0, cache.setCount())
	store.AssertNumberOfCalls(t, "FindByID", 2)

	_, err = service.GetFacilityByID(context.Background(), "  ")
	assert.True(t, apperrors.IsValidation(err))
}

// Test 11: item lookups survive a broken cache
func TestFacilityQueryService_GetFacilityByID_CacheFailure(t *testing.T) {
	store := new(MockFacilityStore)
	cache := newFakeQueryCache()
	cache.getErr = errors.New("broken pipe")
	cache.setErr = errors.New("broken pipe")
	service := NewFacilityQueryService(store, cache, testQueryConfig())
	facility := sampleFacilities()[1]
	store.On("FindByID", mock.Anything, "f-2").Return(&facility, nil)

	got, err := service.GetFacilityByID(context.Background(), "f-2")

	require.NoError(t, err)
	assert.Equal(t, "Harbor Gym", got.Name)
}
