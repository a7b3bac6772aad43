// Package fxrate looks up the USD to CRC exchange rate used for summary
// conversions. Lookups are cached and fall back to a fixed rate on any
// failure.
package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mailledger/internal/cache"
	"mailledger/internal/log"
)

const (
	DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

	// FallbackUSDToCRC is used when no API key is configured or the
	// lookup fails.
	FallbackUSDToCRC = 515.0

	pairKey = "USD/CRC"
)

type Config struct {
	APIKey     string
	BaseURL    string
	TTL        time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *cache.LRUCache[float64]
	logger  *log.Logger
}

type pairResponse struct {
	Result         string  `json:"result"`
	ConversionRate float64 `json:"conversion_rate"`
	ErrorType      string  `json:"error-type"`
}

func New(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default(log.ComponentFX)
	}
	return &Service{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		cache:   cache.NewLRUCache[float64](8, cfg.TTL),
		logger:  cfg.Logger,
	}
}

// Cache exposes the rate cache so a cache.Manager can sweep it.
func (s *Service) Cache() cache.Cleaner { return s.cache }

// USDToCRC returns how many colones one dollar buys. It never fails.
func (s *Service) USDToCRC(ctx context.Context) float64 {
	if s.apiKey == "" {
		return FallbackUSDToCRC
	}
	if rate, ok := s.cache.Get(pairKey); ok {
		return rate
	}

	rate, err := s.fetch(ctx, "USD", "CRC")
	if err != nil {
		s.logger.WarnContext(ctx, "Exchange rate lookup failed, using fallback",
			log.FieldError, err, "fallback", FallbackUSDToCRC)
		return FallbackUSDToCRC
	}
	s.cache.Set(pairKey, rate)
	return rate
}

func (s *Service) fetch(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/%s/pair/%s/%s", s.baseURL, s.apiKey, from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return 0, fmt.Errorf("rate api error: %s", body.ErrorType)
	}
	if body.ConversionRate <= 0 {
		return 0, fmt.Errorf("invalid conversion rate %v", body.ConversionRate)
	}
	return body.ConversionRate, nil
}
