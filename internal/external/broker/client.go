package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/wonny/thetascan/pkg/config"
	"github.com/wonny/thetascan/pkg/httputil"
	"github.com/wonny/thetascan/pkg/logger"
	"github.com/wonny/thetascan/pkg/redis"
)

// Client handles communication with the market data broker API
// ⭐ SSOT: 브로커 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.BrokerConfig
	cache      *redis.Cache // nil이면 캐시 없음

	// Token management
	accessToken string
	tokenExpiry time.Time
	tokenMu     sync.RWMutex

	now func() time.Time
}

// NewClient creates a new broker API client. cache may be nil.
func NewClient(cfg config.BrokerConfig, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("broker"),
		cfg:        cfg,
		cache:      cache,
		now:        time.Now,
	}
}

// NewLimiter returns the in-process limiter for the configured requests per second
func NewLimiter(rps int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}

// TokenResponse represents the OAuth token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// envelope is the common response wrapper; RtCd "0" means success
type envelope struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

func (e envelope) err() error {
	if e.RtCd != "0" {
		return fmt.Errorf("API error: %s - %s", e.MsgCd, e.Msg1)
	}
	return nil
}

// getToken gets a valid access token, refreshing if necessary
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	// Double-check after acquiring write lock
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	}
	resp, err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/oauth2/token", body, nil)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp TokenResponse
	if err := httputil.DecodeJSON(resp, &tokenResp); err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token request failed: empty access token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second) // 1분 여유

	c.logger.WithFields(map[string]interface{}{
		"expires_in": tokenResp.ExpiresIn,
	}).Info("Broker access token refreshed")

	return c.accessToken, nil
}

// getJSON makes an authenticated GET and decodes the response into dest
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	headers := map[string]string{
		"authorization": "Bearer " + token,
		"appkey":        c.cfg.AppKey,
		"appsecret":     c.cfg.AppSecret,
	}
	return c.httpClient.GetJSON(ctx, endpoint, headers, dest)
}

// GetCurrentPrice returns the last traded price for a symbol
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}

	if c.cache != nil {
		var cached float64
		hit, err := c.cache.Get(ctx, redis.QuoteKey(symbol), &cached)
		if err != nil {
			c.logger.WithSymbol(symbol).WithError(err).Warn("Quote cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	var result struct {
		envelope
		Output struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"last_price"`
		} `json:"output"`
	}
	query := url.Values{"symbol": {symbol}}
	if err := c.getJSON(ctx, "/v1/quotations/price", query, &result); err != nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}
	if err := result.err(); err != nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(result.Output.LastPrice)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q for %s: %w", result.Output.LastPrice, symbol, err)
	}
	if !price.IsPositive() {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}
	last := price.InexactFloat64()

	if c.cache != nil {
		if err := c.cache.Set(ctx, redis.QuoteKey(symbol), last, redis.TTLShort); err != nil {
			c.logger.WithSymbol(symbol).WithError(err).Warn("Quote cache write failed")
		}
	}

	return last, nil
}
