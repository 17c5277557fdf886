package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
	"github.com/pkg/errors"
)

// Client ходит в OpenCage и ротирует ключи: когда ключ упирается в квоту или отозван,
// берётся следующий. Индекс текущего ключа принадлежит экземпляру клиента.
type Client struct {
	baseURL string
	keys    []string
	httpc   *http.Client

	mu  sync.Mutex
	cur int
}

func New(baseURL string, keys []string) *Client {
	if baseURL == "" {
		baseURL = "https://api.opencagedata.com"
	}
	return &Client{
		baseURL: baseURL,
		keys:    append([]string(nil), keys...),
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type respBody struct {
	Results []struct {
		Components geocoder.Address `json:"components"`
	} `json:"results"`
}

func (c *Client) ReverseDistrict(ctx context.Context, lat, lon float64) (string, error) {
	if len(c.keys) == 0 {
		return "", errors.New("opencage: no api keys configured")
	}

	var lastErr error
	for attempt := 0; attempt < len(c.keys); attempt++ {
		idx, key := c.currentKey()
		d, rotate, err := c.reverseWithKey(ctx, key, lat, lon)
		if !rotate {
			return d, err
		}
		lastErr = err
		c.advance(idx)
	}
	return "", errors.Wrapf(geocoder.ErrRetryable, "all opencage keys rejected: %v", lastErr)
}

func (c *Client) currentKey() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, c.keys[c.cur]
}

// advance сдвигает индекс, только если его ещё не сдвинул параллельный запрос.
func (c *Client) advance(from int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == from {
		c.cur = (c.cur + 1) % len(c.keys)
	}
}

func (c *Client) reverseWithKey(ctx context.Context, key string, lat, lon float64) (string, bool, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", false, errors.Wrap(err, "parse base url")
	}
	u.Path = "/geocode/v1/json"
	q := u.Query()
	q.Set("q", strconv.FormatFloat(lat, 'f', -1, 64)+"+"+strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("key", key)
	q.Set("no_annotations", "1")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", false, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", false, errors.Wrapf(geocoder.ErrRetryable, "do request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusPaymentRequired,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("opencage http %d", resp.StatusCode)
	case resp.StatusCode/100 == 5:
		return "", false, errors.Wrapf(geocoder.ErrRetryable, "opencage http %d", resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return "", false, fmt.Errorf("opencage http %d", resp.StatusCode)
	}

	var rb respBody
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return "", false, errors.Wrap(err, "decode")
	}
	if len(rb.Results) == 0 {
		return "", false, geocoder.ErrNoDistrict
	}
	d := rb.Results[0].Components.District()
	if d == "" {
		return "", false, geocoder.ErrNoDistrict
	}
	return d, false, nil
}
