package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"ccc-photos/internal/geo"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org/reverse"
	DefaultUserAgent = "ccc-photos/1.0"
	DefaultTimeout   = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// ErrNoResult is returned when the service answers but has no place for
// the position.
var ErrNoResult = errors.New("geocode: no result")

// Client performs reverse geocoding lookups.
type Client struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	HTTP      *http.Client
	Limiter   Limiter

	mu sync.Mutex
}

// NewClient returns a Client with defaults filled in. A nil limiter gets the
// production pacing of one request per two seconds.
func NewClient(baseURL, userAgent string, timeout time.Duration, limiter Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if limiter == nil {
		limiter = NewLimiter(2 * time.Second)
	}
	return &Client{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   timeout,
		HTTP:      &http.Client{},
		Limiter:   limiter,
	}
}

// Resolve returns a place name for the position, or the coordinate string
// when the lookup fails for any reason.
func (c *Client) Resolve(ctx context.Context, lat, lng float64) string {
	name, err := c.Lookup(ctx, lat, lng)
	if err != nil {
		fallback := geo.Coordinates{Lat: lat, Lng: lng}.String()
		logging.Warn("Reverse geocoding %s failed, using coordinates: %v", fallback, err)
		metrics.GeocodeRequestsTotal.WithLabelValues("fallback").Inc()
		return fallback
	}
	return name
}

// Lookup queries the service for the position. Calls are serialized and
// paced by the limiter; each request is bounded by Timeout.
func (c *Client) Lookup(ctx context.Context, lat, lng float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	waitStart := time.Now()
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	metrics.GeocodeWaitDuration.Observe(time.Since(waitStart).Seconds())

	start := time.Now()
	name, err := c.fetch(ctx, lat, lng)
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
	if done, ok := c.Limiter.(completer); ok {
		done.Done()
	}

	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("success").Inc()
	logging.Debug("Reverse geocoded %.4f, %.4f to %q", lat, lng, name)
	return name, nil
}

func (c *Client) fetch(ctx context.Context, lat, lng float64) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid geocoder URL: %w", err)
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close geocoder response: %v", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("geocoder returned %s", resp.Status)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("geocoder returned non-JSON content")
	}

	doc := gjson.ParseBytes(body)
	if msg := doc.Get("error"); msg.Exists() {
		return "", fmt.Errorf("%w: %s", ErrNoResult, msg.String())
	}
	name := PlaceName(doc)
	if name == "" {
		return "", ErrNoResult
	}
	return name, nil
}

// PlaceName derives a short name from a reverse geocoding response, most
// specific first:
//
//	neighbourhood or suburb, city
//	road, city
//	city, state
//	city
//	first two segments of display_name
//	display_name
func PlaceName(doc gjson.Result) string {
	addr := doc.Get("address")
	field := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(addr.Get(k).String()); v != "" {
				return v
			}
		}
		return ""
	}

	city := field("city", "town", "village")
	local := field("neighbourhood", "suburb")
	road := field("road")
	state := field("state")

	switch {
	case local != "" && city != "":
		return local + ", " + city
	case road != "" && city != "":
		return road + ", " + city
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	}

	display := strings.TrimSpace(doc.Get("display_name").String())
	if display == "" {
		return ""
	}
	parts := strings.Split(display, ",")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[0]) + ", " + strings.TrimSpace(parts[1])
	}
	return display
}
