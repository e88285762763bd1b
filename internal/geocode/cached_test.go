package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type memPlaces struct {
	names map[string]string
	puts  int
}

func (m *memPlaces) GetPlaceName(_ context.Context, key string) (string, bool, error) {
	name, ok := m.names[key]
	return name, ok, nil
}

func (m *memPlaces) PutPlaceName(_ context.Context, key string, _, _ float64, name string) error {
	m.names[key] = name
	m.puts++
	return nil
}

type stubLookup struct {
	name  string
	err   error
	calls int
}

func (s *stubLookup) Lookup(context.Context, float64, float64) (string, error) {
	s.calls++
	return s.name, s.err
}

func TestCachedStoresSuccessfulNames(t *testing.T) {
	store := &memPlaces{names: map[string]string{}}
	lookup := &stubLookup{name: "Mission, San Francisco"}
	c := NewCached(lookup, store)

	assert.Equal(t, "Mission, San Francisco", c.Resolve(context.Background(), 37.75993, -122.41483))
	assert.Equal(t, "Mission, San Francisco", c.Resolve(context.Background(), 37.75991, -122.41481))
	assert.Equal(t, 1, lookup.calls, "second call within rounding should hit the cache")
	assert.Equal(t, "Mission, San Francisco", store.names["37.7599,-122.4148"])
}

func TestCachedDoesNotStoreFallbacks(t *testing.T) {
	store := &memPlaces{names: map[string]string{}}
	lookup := &stubLookup{err: errors.New("offline")}
	c := NewCached(lookup, store)

	assert.Equal(t, "1.5000, 2.5000", c.Resolve(context.Background(), 1.5, 2.5))
	assert.Equal(t, "1.5000, 2.5000", c.Resolve(context.Background(), 1.5, 2.5))
	assert.Equal(t, 2, lookup.calls)
	assert.Zero(t, store.puts)
}

func TestCachedWithoutStoreOrLookup(t *testing.T) {
	assert.Equal(t, "X", NewCached(&stubLookup{name: "X"}, nil).Resolve(context.Background(), 0, 0))
	assert.Equal(t, "0.0000, 0.0000", NewCached(nil, nil).Resolve(context.Background(), 0, 0))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "37.7749,-122.4194", Key(37.77491, -122.41944))
}
