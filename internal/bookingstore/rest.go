package bookingstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"perfprime/internal/booking"
	"perfprime/internal/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const restSource = "rest"

// RESTClient reads bookings from the Supabase PostgREST endpoint.
type RESTClient struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewRESTClient constructs a client for baseURL (the project URL, without /rest/v1)
// authenticated with apiKey.
func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      "bookings",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for booking lists.
func (c *RESTClient) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit caps outbound requests at rps with the given burst.
func (c *RESTClient) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// ListBookings fetches the bookings matching q.
func (c *RESTClient) ListBookings(ctx context.Context, q Query) ([]booking.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("bookings:%s:%s:%s", q.ProfessionalID, q.From, q.To)
	var records []booking.Record
	if c.readCache(ctx, cacheKey, &records) {
		metrics.IncBookingStoreRequest(restSource, "cache")
		return records, nil
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, c.table, listParams(q).Encode())
	if err := c.doGet(ctx, endpoint, &records); err != nil {
		metrics.IncBookingStoreRequest(restSource, "error")
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	metrics.IncBookingStoreRequest(restSource, "ok")

	if records == nil {
		records = []booking.Record{}
	}
	c.writeCache(ctx, cacheKey, records)
	return records, nil
}

func listParams(q Query) url.Values {
	v := url.Values{}
	v.Set("select", "*")
	if q.ProfessionalID != "" {
		v.Set("professional_id", "eq."+q.ProfessionalID)
	}
	if q.From != "" {
		v.Add("booking_date", "gte."+q.From)
	}
	if q.To != "" {
		v.Add("booking_date", "lte."+q.To)
	}
	v.Set("order", "booking_date.asc,booking_time.asc")
	return v
}

// HealthCheck checks if the REST endpoint answers.
func (c *RESTClient) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/rest/v1/", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *RESTClient) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *RESTClient) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *RESTClient) doGet(ctx context.Context, endpoint string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *RESTClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
