package riot

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// statusEndpoint is the cheapest authenticated call on a platform host
const statusEndpoint = "/lol/status/v4/platform-data"

const defaultValidationTimeout = 10 * time.Second

// KeyStatus is the outcome of a key check
type KeyStatus int

const (
	// KeyUnknown means the check itself failed (network, 5xx, 429)
	KeyUnknown KeyStatus = iota
	KeyValid
	// KeyRejected covers 401 and 403; expired development keys return 403
	KeyRejected
)

func (s KeyStatus) String() string {
	switch s {
	case KeyValid:
		return "valid"
	case KeyRejected:
		return "rejected"
	}
	return "unknown"
}

// KeyValidator checks an API key before a collector run starts
type KeyValidator struct {
	httpClient *http.Client
	baseURL    string
}

// KeyValidatorOption configures a KeyValidator
type KeyValidatorOption func(*KeyValidator)

// WithBaseURL points the validator at another host (tests)
func WithBaseURL(url string) KeyValidatorOption {
	return func(v *KeyValidator) { v.baseURL = url }
}

// WithPlatform checks against the tracked player's platform host
func WithPlatform(platform string) KeyValidatorOption {
	return func(v *KeyValidator) { v.baseURL = PlatformBaseURL(platform) }
}

// WithTimeout bounds the check request
func WithTimeout(timeout time.Duration) KeyValidatorOption {
	return func(v *KeyValidator) {
		if timeout > 0 {
			v.httpClient.Timeout = timeout
		}
	}
}

// NewKeyValidator creates a validator for the na1 host unless configured otherwise
func NewKeyValidator(opts ...KeyValidatorOption) *KeyValidator {
	v := &KeyValidator{
		httpClient: &http.Client{Timeout: defaultValidationTimeout},
		baseURL:    PlatformBaseURL("na1"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateKey calls the platform status endpoint with apiKey.
// An error always comes with KeyUnknown.
func (v *KeyValidator) ValidateKey(ctx context.Context, apiKey string) (KeyStatus, error) {
	if apiKey == "" {
		return KeyUnknown, fmt.Errorf("API key cannot be empty")
	}

	url := v.baseURL + statusEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return KeyUnknown, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return KeyUnknown, fmt.Errorf("key check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return KeyValid, nil
	}
	statusErr := &StatusError{StatusCode: resp.StatusCode, URL: url}
	if IsKeyRejected(statusErr) {
		return KeyRejected, nil
	}
	return KeyUnknown, statusErr
}
