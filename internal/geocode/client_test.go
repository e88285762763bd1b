package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPlaceName(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "neighbourhood and city",
			doc:  `{"address":{"neighbourhood":"Mission","suburb":"SoMa","city":"San Francisco","road":"Valencia St"}}`,
			want: "Mission, San Francisco",
		},
		{
			name: "suburb and town",
			doc:  `{"address":{"suburb":"Old Town","town":"Pasadena"}}`,
			want: "Old Town, Pasadena",
		},
		{
			name: "road and city",
			doc:  `{"address":{"road":"Main St","city":"Springfield","state":"IL"}}`,
			want: "Main St, Springfield",
		},
		{
			name: "city and state",
			doc:  `{"address":{"village":"Hamlet","state":"Vermont"}}`,
			want: "Hamlet, Vermont",
		},
		{
			name: "city only",
			doc:  `{"address":{"city":"Paris"}}`,
			want: "Paris",
		},
		{
			name: "display name segments",
			doc:  `{"display_name":"Golden Gate Bridge, Presidio, San Francisco, CA","address":{"road":"US-101"}}`,
			want: "Golden Gate Bridge, Presidio",
		},
		{
			name: "raw display name",
			doc:  `{"display_name":"Atlantic Ocean"}`,
			want: "Atlantic Ocean",
		},
		{
			name: "empty",
			doc:  `{}`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceName(gjson.Parse(tt.doc)))
		})
	}
}

func newTestClient(url string) *Client {
	return NewClient(url, "ccc-photos-test", time.Second, NoLimit())
}

func TestLookupRequest(t *testing.T) {
	var gotUA, gotLat, gotLon, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLat = r.URL.Query().Get("lat")
		gotLon = r.URL.Query().Get("lon")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"x","address":{"city":"Oakland","state":"California"}}`))
	}))
	defer srv.Close()

	name, err := newTestClient(srv.URL).Lookup(context.Background(), 37.8044, -122.2712)
	require.NoError(t, err)
	assert.Equal(t, "Oakland, California", name)
	assert.Equal(t, "ccc-photos-test", gotUA)
	assert.Equal(t, "37.8044", gotLat)
	assert.Equal(t, "-122.2712", gotLon)
	assert.Equal(t, "json", gotFormat)
}

func TestResolveFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>rate limited</html>"))
		}},
		{"error field", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
		}},
		{"empty result", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}},
		{"too slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(srv.URL)
			c.Timeout = 100 * time.Millisecond
			assert.Equal(t, "12.3457, -45.6789", c.Resolve(context.Background(), 12.345678, -45.678912))
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Equal(t, "1.0000, 2.0000", newTestClient(url).Resolve(context.Background(), 1, 2))
}

func TestLookupsAreSequential(t *testing.T) {
	var inflight, maxInflight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			m := atomic.LoadInt32(&maxInflight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInflight, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		_, _ = w.Write([]byte(`{"address":{"city":"X"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Resolve(context.Background(), 1, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInflight))
}

type countingLimiter struct{ n int32 }

func (l *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&l.n, 1)
	return ctx.Err()
}

func TestLookupWaitsOnLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":{"city":"X"}}`))
	}))
	defer srv.Close()

	lim := &countingLimiter{}
	c := NewClient(srv.URL, "", time.Second, lim)
	c.Resolve(context.Background(), 1, 1)
	c.Resolve(context.Background(), 2, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&lim.n))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Lookup(ctx, 1, 1)
	assert.Error(t, err)
}

func TestNewLimiterPacing(t *testing.T) {
	lim := NewLimiter(10 * time.Millisecond)
	assert.Equal(t, 1, lim.Burst())
	assert.Equal(t, time.Second, lim.Delay(), "delay below the floor is raised to one second")

	lim = NewLimiter(2 * time.Second)
	assert.Equal(t, 2*time.Second, lim.Delay())
}

func TestPacerMeasuresGapFromCompletion(t *testing.T) {
	const delay = 80 * time.Millisecond
	var (
		mu      sync.Mutex
		starts  []time.Time
		ends []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		// Slow response: most of the delay is spent inside the request.
		time.Sleep(60 * time.Millisecond)
		_, _ = w.Write([]byte(`{"address":{"city":"X"}}`))
		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, newPacer(delay))
	for i := 0; i < 3; i++ {
		_, err := c.Lookup(context.Background(), float64(i), 1)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(ends[i-1])
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond,
			"lookup %d started %v after the previous one finished", i, gap)
	}
}
