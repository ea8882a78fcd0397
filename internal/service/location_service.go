package service

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/pkg/errors"
)

type reverseGeocodeResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

type locationService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLocationService creates a reverse geocoding client for the address auto-fill
func NewLocationService(cfg config.LocationConfig, logger *zap.Logger) *locationService {
	return &locationService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Locate turns coordinates into an address, city and pincode
func (s *locationService) Locate(ctx context.Context, lat, lon float64) (*Location, error) {
	fields := make(map[string]string)
	if lat < -90 || lat > 90 {
		fields["lat"] = "latitude must be between -90 and 90"
	}
	if lon < -180 || lon > 180 {
		fields["lon"] = "longitude must be between -180 and 180"
	}
	if len(fields) > 0 {
		return nil, &errors.ErrValidation{Message: "invalid coordinates", Fields: fields}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if s.apiKey != "" {
		q.Set("api_key", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &errors.ErrTransport{Op: "reverse geocode", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ErrTransport{Op: "reverse geocode", Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("Reverse geocode rejected", zap.Int("status", resp.StatusCode))
		return nil, &errors.ErrRejected{Op: "reverse geocode", Status: resp.StatusCode, Message: "failed to fetch location"}
	}

	var result reverseGeocodeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reverse geocode response: %w", err)
	}

	city := result.Address.City
	if city == "" {
		city = result.Address.Town
	}
	if city == "" {
		city = result.Address.Village
	}
	return &Location{
		Address: result.DisplayName,
		City:    city,
		Pincode: result.Address.Postcode,
	}, nil
}
