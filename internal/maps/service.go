// Package maps resolves addresses through Nominatim: address suggestions for
// the intake form and coordinates for lead and buyer geocoding.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/logger"

	"golang.org/x/time/rate"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent    = "LeadBroker/1.0"
	defaultSuggestions  = 5
	requestTimeout      = 10 * time.Second
)

// Service talks to the Nominatim search API. Requests are paced to respect
// the public instance's usage policy.
type Service struct {
	client       *http.Client
	baseURL      string
	userAgent    string
	countryCodes string
	limiter      *rate.Limiter
	log          *logger.Logger
}

// NewService creates a Nominatim client from configuration.
func NewService(cfg config.GeocodingConfig, log *logger.Logger) *Service {
	baseURL := cfg.GetNominatimURL()
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	userAgent := cfg.GetGeocodeUserAgent()
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	limit := rate.Inf
	if rps := cfg.GetGeocodeRatePerSecond(); rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Service{
		client:       &http.Client{Timeout: requestTimeout},
		baseURL:      baseURL,
		userAgent:    userAgent,
		countryCodes: cfg.GetGeocodeCountryCodes(),
		limiter:      rate.NewLimiter(limit, 1),
		log:          log,
	}
}

// SearchAddress returns up to limit street-level suggestions for query.
func (s *Service) SearchAddress(ctx context.Context, query string, limit int) ([]AddressSuggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestions
	}
	rawResults, err := s.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(rawResults))
	for _, raw := range rawResults {
		suggestion, ok := buildSuggestion(raw)
		if !ok {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// Geocode implements geo.Geocoder with the best Nominatim match.
func (s *Service) Geocode(ctx context.Context, address string) (geo.Point, error) {
	rawResults, err := s.search(ctx, address, 1)
	if err != nil {
		return geo.Point{}, err
	}
	if len(rawResults) == 0 {
		return geo.Point{}, geo.ErrNoResult
	}
	lat, lon, ok := parseCoordinates(rawResults[0])
	if !ok {
		return geo.Point{}, fmt.Errorf("nominatim returned unparsable coordinates for %q", address)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(limit))
	if s.countryCodes != "" {
		params.Add("countrycodes", s.countryCodes)
	}

	reqURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.WithContext(ctx).Error("nominatim request failed", "error", err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.WithContext(ctx).Error("nominatim upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var rawResults []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResults); err != nil {
		s.log.WithContext(ctx).Error("failed to decode nominatim payload", "error", err)
		return nil, err
	}
	return rawResults, nil
}

func buildSuggestion(raw nominatimResponse) (AddressSuggestion, bool) {
	if raw.Address.Road == "" {
		return AddressSuggestion{}, false
	}
	city := pickCity(raw.Address)
	if city == "" {
		return AddressSuggestion{}, false
	}
	lat, lon, ok := parseCoordinates(raw)
	if !ok {
		return AddressSuggestion{}, false
	}

	suggestion := AddressSuggestion{
		Street:      raw.Address.Road,
		HouseNumber: raw.Address.HouseNumber,
		ZipCode:     raw.Address.Postcode,
		City:        city,
		State:       raw.Address.State,
		Lat:         lat,
		Lon:         lon,
	}
	suggestion.Label = buildLabel(suggestion)
	return suggestion, true
}

func parseCoordinates(raw nominatimResponse) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return 0, 0, false
	}
	if !(geo.Point{Lat: lat, Lon: lon}).Valid() {
		return 0, 0, false
	}
	return lat, lon, true
}

func pickCity(address nominatimAddress) string {
	if address.City != "" {
		return address.City
	}
	if address.Town != "" {
		return address.Town
	}
	if address.Village != "" {
		return address.Village
	}
	if address.Municipality != "" {
		return address.Municipality
	}
	return address.Hamlet
}

// buildLabel formats a US-style single-line address:
// "123 Main St, Austin, TX 78701".
func buildLabel(s AddressSuggestion) string {
	street := strings.TrimSpace(s.HouseNumber + " " + s.Street)
	parts := []string{street, s.City}
	region := strings.TrimSpace(s.State + " " + s.ZipCode)
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}
