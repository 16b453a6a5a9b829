package riot

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

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// Rate limits for dev key (using conservative values to be safe)
	requestsPerSecond = 15 // Actual: 20, using 15 for safety
	requestsPer2Min   = 90 // Actual: 100, using 90 for safety

	defaultTimeout    = 30 * time.Second
	defaultRetryAfter = 10 * time.Second
	maxRateLimitRetry = 5
)

var (
	ErrUnauthorized = errors.New("riot api: unauthorized")
	ErrForbidden    = errors.New("riot api: forbidden")
	ErrNotFound     = errors.New("riot api: not found")
	ErrRateLimited  = errors.New("riot api: rate limited")
)

// StatusError is returned for any non-200 response
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "API returned 403 Forbidden - check if your API key is valid"
	case http.StatusNotFound:
		return "API returned 404 Not Found - player/match may not exist"
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

// Unwrap maps well-known status codes to sentinel errors so callers can use errors.Is
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsKeyRejected reports whether err means the API key was refused (401/403)
func IsKeyRejected(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// Config holds everything a Client needs. Nothing is read from the environment here.
type Config struct {
	APIKey   string
	Platform string // e.g. na1, euw1, kr
	Timeout  time.Duration

	// Overrides for tests; derived from Platform when empty
	PlatformBaseURL string
	RegionalBaseURL string

	Logger *zap.Logger
}

// Client is a rate-limited Riot API client
type Client struct {
	apiKey      string
	platformURL string
	regionalURL string
	httpClient  *http.Client
	logger      *zap.Logger

	// Rate limiting
	mu          sync.Mutex
	shortWindow []time.Time // Requests in last second
	longWindow  []time.Time // Requests in last 2 minutes
}

// NewClient creates a new Riot API client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("riot api key is required")
	}
	platform := strings.ToLower(cfg.Platform)
	if platform == "" {
		platform = "na1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Client{
		apiKey:      cfg.APIKey,
		platformURL: cfg.PlatformBaseURL,
		regionalURL: cfg.RegionalBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger.Named("riot"),
	}
	if c.platformURL == "" {
		c.platformURL = PlatformBaseURL(platform)
	}
	if c.regionalURL == "" {
		c.regionalURL = RegionalBaseURL(platform)
	}

	c.logger.Debug("client configured",
		zap.String("key", MaskAPIKey(cfg.APIKey)),
		zap.String("platform", c.platformURL),
		zap.String("regional", c.regionalURL))

	return c, nil
}

// RegionForPlatform maps a platform routing value to its regional cluster
func RegionForPlatform(platform string) string {
	switch strings.ToLower(platform) {
	case "na1", "br1", "la1", "la2":
		return "americas"
	case "euw1", "eun1", "tr1", "ru":
		return "europe"
	case "kr", "jp1":
		return "asia"
	default:
		return "americas"
	}
}

// PlatformBaseURL returns the platform host, e.g. https://na1.api.riotgames.com
func PlatformBaseURL(platform string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", strings.ToLower(platform))
}

// RegionalBaseURL returns the regional host serving account-v1 and match-v5
func RegionalBaseURL(platform string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", RegionForPlatform(platform))
}

// MaskAPIKey shows only the first 8 and last 4 characters of a key
func MaskAPIKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// waitForRateLimit blocks until we can make another request
func (c *Client) waitForRateLimit(ctx context.Context) error {
	for {
		c.mu.Lock()

		now := time.Now()
		oneSecondAgo := now.Add(-1 * time.Second)
		twoMinutesAgo := now.Add(-2 * time.Minute)

		c.shortWindow = pruneBefore(c.shortWindow, oneSecondAgo)
		c.longWindow = pruneBefore(c.longWindow, twoMinutesAgo)

		var waitTime time.Duration
		switch {
		case len(c.shortWindow) >= requestsPerSecond:
			waitTime = c.shortWindow[0].Add(time.Second).Sub(now) + 100*time.Millisecond
		case len(c.longWindow) >= requestsPer2Min:
			waitTime = c.longWindow[0].Add(2*time.Minute).Sub(now) + 100*time.Millisecond
		}

		if waitTime <= 0 {
			// Record this request and exit loop
			c.shortWindow = append(c.shortWindow, now)
			c.longWindow = append(c.longWindow, now)
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		c.logger.Debug("rate limit reached, waiting", zap.Duration("wait", waitTime))
		if err := sleepCtx(ctx, waitTime); err != nil {
			return err
		}
	}
}

func pruneBefore(window []time.Time, cutoff time.Time) []time.Time {
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doRequest makes a rate-limited GET and returns the raw body
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := c.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetry {
			resp.Body.Close()
			waitTime := retryAfter(resp.Header.Get("Retry-After"))
			c.logger.Warn("429 rate limited", zap.Duration("wait", waitTime), zap.Int("attempt", attempt+1))
			if err := sleepCtx(ctx, waitTime); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
		}
		return body, nil
	}
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func (c *Client) getJSON(ctx context.Context, url string, result any) ([]byte, error) {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body, nil
}

// GetAccountByRiotID fetches account info by Riot ID (gameName#tagLine)
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountResponse, error) {
	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionalURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var account AccountResponse
	if _, err := c.getJSON(ctx, endpoint, &account); err != nil {
		return nil, fmt.Errorf("failed to get account %s#%s: %w", gameName, tagLine, err)
	}
	return &account, nil
}

// GetSummoner fetches summoner profile info by PUUID
func (c *Client) GetSummoner(ctx context.Context, puuid string) (*SummonerResponse, error) {
	endpoint := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.platformURL, puuid)

	var summoner SummonerResponse
	if _, err := c.getJSON(ctx, endpoint, &summoner); err != nil {
		return nil, fmt.Errorf("failed to get summoner: %w", err)
	}
	return &summoner, nil
}

// GetMatchHistory fetches the most recent match IDs for a player, newest first
func (c *Client) GetMatchHistory(ctx context.Context, puuid string, start, count int) ([]string, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=%d&count=%d",
		c.regionalURL, puuid, start, count)

	var matchIDs []string
	if _, err := c.getJSON(ctx, endpoint, &matchIDs); err != nil {
		return nil, fmt.Errorf("failed to get match history: %w", err)
	}
	return matchIDs, nil
}

// GetMatch fetches match details
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchResponse, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, matchID)

	var match MatchResponse
	raw, err := c.getJSON(ctx, endpoint, &match)
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}
	match.Raw = raw
	return &match, nil
}

// GetTimeline fetches match timeline
func (c *Client) GetTimeline(ctx context.Context, matchID string) (*TimelineResponse, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s/timeline", c.regionalURL, matchID)

	var timeline TimelineResponse
	raw, err := c.getJSON(ctx, endpoint, &timeline)
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline %s: %w", matchID, err)
	}
	timeline.Raw = raw
	return &timeline, nil
}

// DecodeMatch parses a stored match-v5 payload
func DecodeMatch(raw []byte) (*MatchResponse, error) {
	var match MatchResponse
	if err := json.Unmarshal(raw, &match); err != nil {
		return nil, fmt.Errorf("failed to decode match: %w", err)
	}
	match.Raw = raw
	return &match, nil
}

// DecodeTimeline parses a stored match-v5 timeline payload
func DecodeTimeline(raw []byte) (*TimelineResponse, error) {
	var timeline TimelineResponse
	if err := json.Unmarshal(raw, &timeline); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}
	timeline.Raw = raw
	return &timeline, nil
}
