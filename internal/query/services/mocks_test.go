package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

// MockFacilityStore is a mock implementation of repositories.FacilityStore
type MockFacilityStore struct {
	mock.Mock
}

func (m *MockFacilityStore) Count(ctx context.Context, filter repositories.FacilityFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFacilityStore) Find(ctx context.Context, filter repositories.FacilityFilter, opts repositories.FindOptions) ([]entities.Facility, error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Facility), args.Error(1)
}

func (m *MockFacilityStore) FindByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeQueryCache stores JSON in memory and can be told to fail
type fakeQueryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newFakeQueryCache() *fakeQueryCache {
	return &fakeQueryCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *fakeQueryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *fakeQueryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	c.ttls[key] = ttl
	return nil
}

func (c *fakeQueryCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func testQueryConfig() config.QueryConfig {
	return config.DefaultQueryConfig()
}

func sampleFacilities() []entities.Facility {
	return []entities.Facility{
		{
			ID:        "f-1",
			Name:      "City Fitness Central",
			Address:   "1 Main St",
			Location:  entities.Location{Latitude: 40.71, Longitude: -74.0},
			Amenities: []string{"Pool", "Gym"},
		},
		{
			ID:        "f-2",
			Name:      "Harbor Gym",
			Address:   "9 Dock Rd",
			Location:  entities.Location{Latitude: 40.70, Longitude: -74.01},
			Amenities: []string{"Gym"},
		},
	}
}
