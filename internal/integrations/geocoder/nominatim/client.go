package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
	"github.com/pkg/errors"
)

const defaultUserAgent = "freshtrack-district-extractor/1.0"

type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
}

func New(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type reverseResp struct {
	Address geocoder.Address `json:"address"`
	Error   string           `json:"error,omitempty"`
}

func (c *Client) ReverseDistrict(ctx context.Context, lat, lon float64) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	u.Path = "/reverse"
	q := u.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	// Nominatim блокирует запросы без осмысленного User-Agent.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrapf(geocoder.ErrRetryable, "do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5 {
		return "", errors.Wrapf(geocoder.ErrRetryable, "nominatim http %d", resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("nominatim http %d", resp.StatusCode)
	}

	var rb reverseResp
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return "", errors.Wrap(err, "decode")
	}
	if rb.Error != "" {
		return "", errors.Wrap(geocoder.ErrNoDistrict, rb.Error)
	}

	d := rb.Address.District()
	if d == "" {
		return "", geocoder.ErrNoDistrict
	}
	return d, nil
}
