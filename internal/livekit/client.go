// Package livekit is the adapter for the room platform's server API.
//
// Calls go through the platform's generated Twirp JSON clients, authorized
// with a short-lived bearer JWT signed by the API secret. Nothing outside
// this package talks to the platform directly.
//
// The client never retries. A failed call is reported once and the caller
// decides what to compensate.
package livekit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-orchestrator/internal/auth"
	"voice-orchestrator/internal/metrics"

	lkpb "github.com/livekit/protocol/livekit"
	"github.com/twitchtv/twirp"
)

const serviceTokenTTL = 10 * time.Minute

// TokenSigner mints the bearer token attached to each API call.
type TokenSigner interface {
	IssueService(now time.Time, grant auth.VideoGrant, ttl time.Duration) (string, error)
}

type Config struct {
	// URL is the platform URL as handed to clients (ws://, wss://) or the
	// HTTP origin of its API (http://, https://).
	URL string

	// Timeout bounds one round trip when the caller's context has no
	// earlier deadline.
	Timeout time.Duration

	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	out := c
	if out.Timeout <= 0 {
		out.Timeout = 5 * time.Second
	}
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{}
	}
	return out
}

// Client is safe for concurrent use; one instance is shared by all calls.
type Client struct {
	rooms    lkpb.RoomService
	dispatch lkpb.AgentDispatchService
	signer   TokenSigner
	timeout  time.Duration

	Now func() time.Time
}

func NewClient(cfg Config, signer TokenSigner) (*Client, error) {
	cfg = cfg.withDefaults()
	if signer == nil {
		return nil, errors.New("livekit: token signer is nil")
	}
	base, err := HTTPURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	hc := observedClient{http: cfg.HTTPClient}
	return &Client{
		rooms:    lkpb.NewRoomServiceJSONClient(base, hc),
		dispatch: lkpb.NewAgentDispatchServiceJSONClient(base, hc),
		signer:   signer,
		timeout:  cfg.Timeout,
		Now:      time.Now,
	}, nil
}

// HTTPURL maps a ws(s):// platform URL to the http(s):// origin of its API.
func HTTPURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("livekit: invalid url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("livekit: unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("livekit: url host required")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// exchange is what the HTTP layer saw for one call. The generated clients
// fold transport failures and platform answers into one twirp.Error, so
// the raw outcome is captured here to tell them apart.
type exchange struct {
	status int
	err    error
}

type exchangeKey struct{}

type observedClient struct {
	http *http.Client
}

func (o observedClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := o.http.Do(req)
	if ex, ok := req.Context().Value(exchangeKey{}).(*exchange); ok {
		ex.err = err
		if resp != nil {
			ex.status = resp.StatusCode
		}
	}
	return resp, err
}

func (c *Client) invoke(ctx context.Context, method string, grant auth.VideoGrant, call func(context.Context) error) error {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	token, err := c.signer.IssueService(now(), grant, serviceTokenTTL)
	if err != nil {
		return fmt.Errorf("livekit: sign %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, err = twirp.WithHTTPRequestHeaders(ctx, http.Header{"Authorization": []string{"Bearer " + token}})
	if err != nil {
		return fmt.Errorf("livekit: %s: %w", method, err)
	}
	ex := &exchange{}
	ctx = context.WithValue(ctx, exchangeKey{}, ex)

	if err := call(ctx); err != nil {
		err = classify(ctx, method, ex, err)
		code := "transport"
		var apiErr *Error
		if errors.As(err, &apiErr) {
			code = string(apiErr.Code)
		}
		metrics.PlatformRequestsTotal.WithLabelValues(method, code).Inc()
		return err
	}
	metrics.PlatformRequestsTotal.WithLabelValues(method, "ok").Inc()
	return nil
}

// classify turns a generated-client error into either an *Error, when the
// platform answered, or a wrapped transport/context error when it did not.
func classify(ctx context.Context, method string, ex *exchange, err error) error {
	switch {
	case ex.err != nil:
		return fmt.Errorf("livekit: %s: %w", method, ex.err)
	case ctx.Err() != nil:
		return fmt.Errorf("livekit: %s: %w", method, ctx.Err())
	case ex.status == 0:
		return fmt.Errorf("livekit: %s: %w", method, err)
	case ex.status == http.StatusOK:
		return fmt.Errorf("livekit: decode %s: %w", method, err)
	}

	apiErr := &Error{Method: method, Status: ex.status, Code: twirp.Unknown, Msg: err.Error()}
	var twerr twirp.Error
	if errors.As(err, &twerr) {
		apiErr.Code, apiErr.Msg = twerr.Code(), twerr.Msg()
	}
	return apiErr
}
