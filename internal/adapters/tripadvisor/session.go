// internal/adapters/tripadvisor/session.go
package tripadvisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"tripadvisor_hotels/internal/adapters/observability"
	"tripadvisor_hotels/internal/domain"
)

const (
	service = "tripadvisor"

	maxForbiddenRetries = 10
	maxRetries          = 3
	bootstrapAttempts   = 5
	defaultRetryDelay   = time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Config struct {
	SiteBase      string // https://www.tripadvisor.com
	BootstrapPath string // static page that carries the security token
	GraphQLBase   string // relative request URLs are joined to this
	ListingBase   string // .../api/internal/1.14/location
	APIKey        string // listing endpoint key, independent of the session token
	RPS           int
	RetryDelay    time.Duration
	Timeout       time.Duration

	// Transport replaces the proxied, browser-fingerprinted transport. Tests only.
	Transport http.RoundTripper
}

// IdentityPool is the part of the proxy pool a session needs.
type IdentityPool interface {
	NewURL(identity string) (string, error)
	Retire(identity string)
}

// Session is the authentication state of one SessionClient. It is replaced as
// a whole, so token and cookies always come from the same bootstrap.
type Session struct {
	SecurityToken string
	Cookies       string
	ProxyURL      string
	Identity      string
}

type Request struct {
	URL      string // relative to the GraphQL base, or absolute
	Method   string // defaults to POST
	Payload  any    // string and []byte are sent as-is, anything else as JSON
	Headers  map[string]string
	Endpoint string // metrics label, defaults to "graphql"
}

// SessionClient owns one authenticated session. It is not safe for
// concurrent use: a retry may replace the session under an in-flight call.
type SessionClient struct {
	cfg      Config
	pool     IdentityPool
	identity string // "" for an ad hoc session
	rl       *rate.Limiter

	session Session
	http    *resty.Client
	ready   bool
	retired bool
}

func NewSessionClient(cfg Config, pool IdentityPool, identity string) (*SessionClient, error) {
	if pool == nil {
		return nil, errors.New("identity pool is required")
	}
	if cfg.SiteBase == "" || cfg.GraphQLBase == "" {
		return nil, errors.New("site and GraphQL base URLs are required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &SessionClient{
		cfg:      cfg,
		pool:     pool,
		identity: identity,
		rl:       rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
	}, nil
}

func (c *SessionClient) Identity() string { return c.identity }

// Session returns a copy of the current session state.
func (c *SessionClient) Session() Session { return c.session }

// Initialize binds a proxy, loads the bootstrap page and harvests the security
// token and session cookies from it.
func (c *SessionClient) Initialize(ctx context.Context) error {
	if c.retired {
		return fmt.Errorf("%w: %s", domain.ErrIdentityRetired, c.identity)
	}
	proxyURL, err := c.pool.NewURL(c.identity)
	if err != nil {
		return err
	}
	hc, err := c.newHTTP(proxyURL)
	if err != nil {
		return err
	}

	res, err := c.bootstrap(ctx, hc)
	if err != nil {
		observability.ObserveSessionRefresh("error")
		return fmt.Errorf("bootstrap: %w", err)
	}

	tok := ExtractTokens(res.Body(), res.Header())
	if tok.SecurityToken == "" {
		observability.ObserveSessionRefresh("missing_token")
		return fmt.Errorf("%w on %s", domain.ErrMissingToken, c.bootstrapURL())
	}

	c.session = Session{
		SecurityToken: tok.SecurityToken,
		Cookies:       tok.Cookies,
		ProxyURL:      proxyURL,
		Identity:      c.identity,
	}
	c.http = hc
	c.ready = true
	observability.ObserveSessionRefresh("ok")
	log.Debug().
		Str("identity", c.identity).
		Bool("proxied", proxyURL != "").
		Bool("cookies", tok.Cookies != "").
		Msg("session initialized")
	return nil
}

// Do performs an authenticated request and decodes a 200 body into out
// (numbers as json.Number). Non-200 answers are retried with a flat delay:
// 403 up to 10 times, anything else up to 3 times.
func (c *SessionClient) Do(ctx context.Context, r Request, out any) error {
	if c.retired {
		return fmt.Errorf("%w: %s", domain.ErrIdentityRetired, c.identity)
	}
	if !c.ready {
		if err := c.Initialize(ctx); err != nil {
			return err
		}
	}

	method := r.Method
	if method == "" {
		method = http.MethodPost
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = "graphql"
	}
	target := c.resolve(r.URL)
	body, err := encodePayload(r.Payload)
	if err != nil {
		return err
	}

	for retries := 0; ; retries++ {
		status, resBody, err := c.send(ctx, method, target, endpoint, body, r.Headers)
		if err == nil && status == http.StatusOK {
			return decodeJSON(resBody, out)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !shouldRetry(status, retries) {
			c.retire()
			return &domain.RequestFailedError{Status: status, URL: target, Err: err}
		}

		observability.ObserveRetry(endpoint, status)
		log.Debug().
			Int("status", status).
			Str("url", target).
			Int("retry", retries+1).
			Err(err).
			Msg("retrying")

		if !sleepCtx(ctx, c.cfg.RetryDelay) {
			return ctx.Err()
		}
		if err := c.refresh(ctx, status); err != nil {
			return err
		}
	}
}

func shouldRetry(status, retries int) bool {
	return (status == http.StatusForbidden && retries < maxForbiddenRetries) || retries < maxRetries
}

// refresh runs before every retry. Ad hoc sessions start over on a new one-shot
// identity. Bound identities keep their proxy and only re-bootstrap after a 403,
// since that is the site rejecting the token. A failed refresh keeps the previous
// session; only pool exhaustion is returned.
func (c *SessionClient) refresh(ctx context.Context, status int) error {
	if c.identity != "" && status != http.StatusForbidden {
		return nil
	}
	err := c.Initialize(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrPoolExhausted) || ctx.Err() != nil {
		return err
	}
	log.Warn().Err(err).Str("identity", c.identity).Msg("session refresh failed, keeping previous session")
	return nil
}

func (c *SessionClient) retire() {
	if c.identity == "" {
		return
	}
	c.retired = true
	c.pool.Retire(c.identity)
	log.Warn().Str("identity", c.identity).Msg("proxy identity retired")
}

func (c *SessionClient) send(ctx context.Context, method, target, endpoint string, body []byte, headers map[string]string) (int, []byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-requested-by", c.session.SecurityToken).
		SetHeaders(headers)
	if c.session.Cookies != "" {
		req.SetHeader("Cookie", c.session.Cookies)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	res, err := req.Execute(method, target)
	if err != nil {
		observability.ObserveExternal(service, endpoint, 0, time.Since(start))
		return 0, nil, err
	}
	observability.ObserveExternal(service, endpoint, res.StatusCode(), time.Since(start))
	return res.StatusCode(), res.Body(), nil
}

func (c *SessionClient) bootstrap(ctx context.Context, hc *resty.Client) (*resty.Response, error) {
	target := c.bootstrapURL()
	var lastErr error
	for attempt := 0; attempt < bootstrapAttempts; attempt++ {
		if attempt > 0 && !sleepCtx(ctx, c.cfg.RetryDelay) {
			return nil, ctx.Err()
		}
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := hc.R().
			SetContext(ctx).
			SetHeader("User-Agent", browserUserAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
			SetHeader("Accept-Language", "en-US,en;q=0.9").
			Get(target)
		if err != nil {
			observability.ObserveExternal(service, "bootstrap", 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		observability.ObserveExternal(service, "bootstrap", res.StatusCode(), time.Since(start))
		if res.StatusCode() == http.StatusOK {
			return res, nil
		}
		lastErr = &domain.RequestFailedError{Status: res.StatusCode(), URL: target}
	}
	return nil, lastErr
}

// newHTTP builds the client for one proxy binding. The proxy lives on the
// transport, so a new binding needs a new client.
func (c *SessionClient) newHTTP(proxyURL string) (*resty.Client, error) {
	rt := c.cfg.Transport
	if rt == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if proxyURL != "" {
			u, err := url.Parse(proxyURL)
			if err != nil {
				return nil, fmt.Errorf("parse proxy url: %w", err)
			}
			tr.Proxy = http.ProxyURL(u)
		}
		rt = cloudflarebp.AddCloudFlareByPass(tr)
	}
	hc := resty.New().
		SetTransport(rt).
		SetTimeout(c.cfg.Timeout).
		SetCookieJar(nil) // cookies are sent explicitly from the session
	return hc, nil
}

func (c *SessionClient) bootstrapURL() string {
	return strings.TrimRight(c.cfg.SiteBase, "/") + c.cfg.BootstrapPath
}

func (c *SessionClient) resolve(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return strings.TrimRight(c.cfg.GraphQLBase, "/") + u
}

func encodePayload(p any) ([]byte, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return b, nil
	}
}

func decodeJSON(b []byte, out any) error {
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
