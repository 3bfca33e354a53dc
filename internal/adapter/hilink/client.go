// Package hilink implements the Router Control Interface over the Huawei HiLink
// HTTP/XML API (B525, B715 and similar LTE routers).
package hilink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/band"
)

// API paths.
const (
	PathSessionToken = "/api/webserver/SesTokInfo"
	PathLogin        = "/api/user/login"
	PathLogout       = "/api/user/logout"
	PathSignal       = "/api/device/signal"
	PathNetMode      = "/api/net/net-mode"
	PathDataSwitch   = "/api/dialup/mobile-dataswitch"
)

// TokenHeader carries the CSRF verification token on requests and responses.
const TokenHeader = "__RequestVerificationToken"

// passwordTypeSHA256 selects the salted SHA-256 login scheme.
const passwordTypeSHA256 = 4

const maxBodyBytes = 1 << 20

// Options tune the transport.
type Options struct {
	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration

	// RequestsPerSecond paces requests; the firmware answers floods with "system busy".
	RequestsPerSecond float64

	// Burst is the limiter bucket size.
	Burst int

	// HTTPClient overrides the default client. Its Jar is replaced when nil.
	HTTPClient *http.Client
}

// DefaultOptions returns the transport defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Client talks to one HiLink router. It implements adapter.RouterControl.
type Client struct {
	adapter.AdapterBase

	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	tokens []string
}

var _ adapter.RouterControl = (*Client)(nil)

// NewClient creates a client for the router at address ("192.168.8.1" or a full URL).
func NewClient(routerID, address string, opts Options) (*Client, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("router address is required")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	baseURL, err := url.Parse(strings.TrimRight(address, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid router address %q: %w", address, err)
	}

	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaults.Burst
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return &Client{
		AdapterBase: adapter.AdapterBase{
			RouterID: routerID,
			Model:    "HiLink",
		},
		baseURL: baseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}, nil
}

// Login opens a session with the salted SHA-256 password scheme.
func (c *Client) Login(ctx context.Context, creds adapter.Credentials) error {
	info, err := c.refreshSession(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.mu.Lock()
	c.tokens = []string{info.Token}
	c.mu.Unlock()

	req := loginRequest{
		Username:     creds.Username,
		Password:     encodePassword(creds.Username, creds.Password, info.Token),
		PasswordType: passwordTypeSHA256,
	}
	if _, err := c.post(ctx, PathLogin, req); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Logout closes the session and drops pending tokens.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, PathLogout, logoutRequest{Logout: 1})

	c.mu.Lock()
	c.tokens = nil
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// SignalTelemetry returns the raw /api/device/signal document.
func (c *Client) SignalTelemetry(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, PathSignal)
	if err != nil {
		return nil, fmt.Errorf("read signal: %w", err)
	}
	return body, nil
}

// SetNetworkMode changes NetworkMode and keeps the current band masks.
func (c *Client) SetNetworkMode(ctx context.Context, mode adapter.NetworkMode) error {
	current, err := c.netMode(ctx)
	if err != nil {
		return fmt.Errorf("set network mode: %w", err)
	}
	current.NetworkMode = string(mode)
	if _, err := c.post(ctx, PathNetMode, netModeRequest{netMode: current}); err != nil {
		return fmt.Errorf("set network mode %s: %w", mode, err)
	}
	return nil
}

// SetDataSwitch toggles the mobile data connection.
func (c *Client) SetDataSwitch(ctx context.Context, on bool) error {
	value := 0
	if on {
		value = 1
	}
	if _, err := c.post(ctx, PathDataSwitch, dataSwitchRequest{DataSwitch: value}); err != nil {
		return fmt.Errorf("set data switch %t: %w", on, err)
	}
	return nil
}

// SetLTEBandList writes the LTE band mask and keeps the current mode.
func (c *Client) SetLTEBandList(ctx context.Context, bands band.Set) error {
	mask, err := bands.MaskHex()
	if err != nil {
		return &adapter.VendorError{Code: adapter.ErrInvalidRange, Original: err, Details: bands.Strings()}
	}
	current, err := c.netMode(ctx)
	if err != nil {
		return fmt.Errorf("set LTE bands: %w", err)
	}
	current.LTEBand = mask
	if _, err := c.post(ctx, PathNetMode, netModeRequest{netMode: current}); err != nil {
		return fmt.Errorf("set LTE bands %s: %w", bands, err)
	}
	return nil
}

func (c *Client) netMode(ctx context.Context) (netMode, error) {
	var mode netMode
	body, err := c.get(ctx, PathNetMode)
	if err != nil {
		return mode, err
	}
	if err := xml.Unmarshal(body, &mode); err != nil {
		return mode, &adapter.VendorError{Code: adapter.ErrInternal, Original: err, Details: PathNetMode}
	}
	return mode, nil
}

// refreshSession fetches a fresh session cookie and verification token.
func (c *Client) refreshSession(ctx context.Context) (sessionInfo, error) {
	var info sessionInfo
	body, err := c.get(ctx, PathSessionToken)
	if err != nil {
		return info, err
	}
	if err := xml.Unmarshal(body, &info); err != nil {
		return info, &adapter.VendorError{Code: adapter.ErrInternal, Original: err, Details: PathSessionToken}
	}
	if name, value, ok := strings.Cut(info.Session, "="); ok {
		c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: name, Value: value}})
	}
	if info.Token == "" {
		return info, &adapter.VendorError{Code: adapter.ErrInternal, Original: fmt.Errorf("empty verification token"), Details: PathSessionToken}
	}
	return info, nil
}

func (c *Client) nextToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if len(c.tokens) > 0 {
		token := c.tokens[0]
		c.tokens = c.tokens[1:]
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	info, err := c.refreshSession(ctx)
	if err != nil {
		return "", err
	}
	return info.Token, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	encoded, err := xml.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}
	token, err := c.nextToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, append([]byte(xml.Header), encoded...), token)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, token string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if payload != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, adapter.NormalizeVendorError(err, path)
	}
	defer func() { _ = resp.Body.Close() }()

	c.collectTokens(resp.Header)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, adapter.NormalizeVendorError(err, path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &adapter.VendorError{
			Code:     adapter.ErrUnavailable,
			Original: fmt.Errorf("%s %s returned HTTP %d", method, path, resp.StatusCode),
			Details:  path,
		}
	}
	if apiErr, ok := parseError(data); ok {
		return nil, adapter.NormalizeVendorCode("hilink", apiErr.Code, apiErr.Message, path)
	}
	return data, nil
}

// collectTokens queues verification tokens handed out by the router.
// Login answers with a "one"/"two" pair; other calls with a single (possibly #-joined) header.
func (c *Client) collectTokens(header http.Header) {
	var fresh []string
	for _, name := range []string{TokenHeader + "one", TokenHeader + "two"} {
		if v := header.Get(name); v != "" {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) == 0 {
		for _, v := range strings.Split(header.Get(TokenHeader), "#") {
			if v = strings.TrimSpace(v); v != "" {
				fresh = append(fresh, v)
			}
		}
	}
	if len(fresh) == 0 {
		return
	}

	c.mu.Lock()
	c.tokens = append(c.tokens, fresh...)
	c.mu.Unlock()
}

// encodePassword implements password_type 4:
// base64(sha256hex(user + base64(sha256hex(password)) + token)).
func encodePassword(username, password, token string) string {
	inner := base64.StdEncoding.EncodeToString([]byte(sha256Hex(password)))
	return base64.StdEncoding.EncodeToString([]byte(sha256Hex(username + inner + token)))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
