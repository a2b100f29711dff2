package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geo_checkin_bot/internal/domain/checkin"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 5 * time.Second

// NominatimClient resolves coordinates to a place name through a Nominatim compatible reverse endpoint.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *logrus.Entry
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration, logger *logrus.Entry) *NominatimClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Error       string `json:"error"`
}

// DescribeLocation never fails. Any lookup error yields the coordinate label.
func (c *NominatimClient) DescribeLocation(ctx context.Context, lat, lon float64) string {
	name, err := c.reverse(ctx, lat, lon)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"latitude":  lat,
			"longitude": lon,
		}).Debug("Reverse geocoding failed, using coordinates")
		return checkin.CoordinateLabel(lat, lon)
	}
	return name
}

func (c *NominatimClient) reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build reverse geocoding request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call reverse geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("reverse geocoder error (status %d): %s", resp.StatusCode, string(body))
	}

	var result reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse reverse geocoder response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("reverse geocoder: %s", result.Error)
	}
	if name := strings.TrimSpace(result.DisplayName); name != "" {
		return name, nil
	}
	if name := strings.TrimSpace(result.Name); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("reverse geocoder returned no name")
}
