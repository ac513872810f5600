package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"watershed-sync/src/helpers"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// AsyncNetworkManager performs the HTTP traffic against the provider's
// metadata API. Requests run through a circuit breaker so a provider outage
// stops producing traffic quickly, and transient failures are retried with
// a widening delay.
// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config  *models.MConfig
	Client  *http.Client
	Logger  *logger.Logger
	breaker *gobreaker.CircuitBreaker
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "provider-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	nm := &AsyncNetworkManager{
		Config:  cfg,
		Logger:  log,
		breaker: cb,
	}
	nm.Client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	return &http.Client{
		Timeout: time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries behind the circuit breaker.
func (nm *AsyncNetworkManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second) // Exponential backoff
		}

		body, err := nm.fetch(finalUrl)
		if err == nil {
			return body, nil
		}

		// An open circuit means the provider is down, retrying here only
		// delays the run.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, helpers.NewProviderError("provider requests suspended by circuit breaker", err)
		}

		lastErr = err
		nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
	}

	return nil, helpers.NewProviderError("max retries exceeded", lastErr)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) fetch(finalUrl string) ([]byte, error) {
	result, err := nm.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequest("GET", finalUrl, nil)
		if err != nil {
			return nil, err
		}

		userAgent := nm.Config.Network.UserAgent
		if userAgent == "" {
			userAgent = "watershed-sync"
		}
		req.Header.Set("User-Agent", userAgent)
		if token := nm.Config.Provider.AuthToken; token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := nm.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("rate limited (status %d)", resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("provider server error (status %d)", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// -----------------------------------------------------------------------------

// GetJSON performs a GET request and decodes the JSON response into out.
func (nm *AsyncNetworkManager) GetJSON(urlStr string, params map[string]string, out interface{}) error {
	body, err := nm.Get(urlStr, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.NewProviderError(fmt.Sprintf("cannot decode response from %s", urlStr), err)
	}
	return nil
}
