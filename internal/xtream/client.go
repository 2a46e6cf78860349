package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/snapetech/xtreamsync/internal/httpclient"
	"github.com/snapetech/xtreamsync/internal/safeurl"
)

const (
	// DefaultTimeout bounds every panel request; player_api calls either
	// answer quickly or never.
	DefaultTimeout = 20 * time.Second

	// defaultRequestsPerSecond paces category-paged calls so a partial
	// refresh storm doesn't trip panel rate limits.
	defaultRequestsPerSecond = 4

	userAgent = "xtream-sync/1.0"
)

// ClientConfig tunes a Client. Zero values get safe defaults.
type ClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            logrus.FieldLogger
}

// Client talks to one panel with one set of credentials. Credentials never
// mutate after construction; each sync builds a fresh client from the
// playback credentials its auth response yielded.
type Client struct {
	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewClient validates the credentials and returns a ready client.
func NewClient(creds Credentials, cfg ClientConfig) (*Client, error) {
	creds.BaseURL = NormalizeBaseURL(creds.BaseURL)
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpclient.WithTimeout(timeout)
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		creds:   creds,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}, nil
}

// Credentials returns the credentials this client was built with.
func (c *Client) Credentials() Credentials { return c.creds }

// get performs one player_api call and classifies every failure mode into the
// client's error taxonomy.
func (c *Client) get(ctx context.Context, action string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(action, err)
	}
	q := url.Values{}
	q.Set("username", c.creds.Username)
	q.Set("password", c.creds.Password)
	if action != "" {
		q.Set("action", action)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	endpoint := c.creds.BaseURL + "/player_api.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	c.log.WithField("url", safeurl.Redact(endpoint)).Debug("player_api request")

	resp, err := httpclient.DoWithRetry(ctx, c.http, req, httpclient.DefaultRetryPolicy)
	if err != nil {
		return nil, classifyTransport(action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(action, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrEmptyResponse
	}
	return body, nil
}

func classifyTransport(action string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w (%s)", ErrTimeout, action)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w (%s)", ErrTimeout, action)
	}
	return &NetworkError{Err: err}
}

// Authenticate performs the bare username/password call and interprets the
// flexible user_info.auth flag. A present-and-false flag means the panel
// rejected the login even though it answered 200.
func (c *Client) Authenticate(ctx context.Context) (AuthResponse, error) {
	body, err := c.get(ctx, "", nil)
	if err != nil {
		return AuthResponse{}, err
	}
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return AuthResponse{}, &DecodeError{Action: "authenticate", Err: err}
	}
	auth := decodeAuth(root)
	if !auth.Authenticated {
		return AuthResponse{}, ErrUnauthorized
	}
	return auth, nil
}

// decodeList tolerates both the usual JSON array and the map-keyed-by-ID
// variant some panels emit for list actions. Map values come back in sorted
// key order so results are deterministic.
func decodeList(action string, body []byte) ([]any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &DecodeError{Action: action, Err: err}
	}
	switch x := v.(type) {
	case []any:
		return x, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, x[k])
		}
		return out, nil
	default:
		return nil, &DecodeError{Action: action, Err: fmt.Errorf("unexpected top-level %T", v)}
	}
}

// Categories lists the panel's categories for one media kind, in upstream order.
func (c *Client) Categories(ctx context.Context, kind MediaKind) ([]Category, error) {
	action := kind.CategoriesAction()
	body, err := c.get(ctx, action, nil)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList(action, body)
	if err != nil {
		return nil, err
	}
	return decodeCategories(raw), nil
}

// Streams lists live or VOD items, optionally filtered to one category.
// An absent/blank categoryID omits the filter and returns the whole kind.
func (c *Client) Streams(ctx context.Context, kind MediaKind, categoryID string) ([]Stream, error) {
	action := kind.StreamsAction()
	params := url.Values{}
	if id := strings.TrimSpace(categoryID); id != "" {
		params.Set("category_id", id)
	}
	body, err := c.get(ctx, action, params)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList(action, body)
	if err != nil {
		return nil, err
	}
	return decodeStreams(raw), nil
}

// SeriesList lists shows, optionally filtered to one category.
func (c *Client) SeriesList(ctx context.Context, categoryID string) ([]Series, error) {
	const action = "get_series"
	params := url.Values{}
	if id := strings.TrimSpace(categoryID); id != "" {
		params.Set("category_id", id)
	}
	body, err := c.get(ctx, action, params)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList(action, body)
	if err != nil {
		return nil, err
	}
	return decodeSeriesList(raw), nil
}

// SeriesEpisodes fetches get_series_info and flattens its episode tree. When
// the tree is empty, unsupportedReason carries any message/info.message text
// the panel offered so the caller can explain its fallback.
func (c *Client) SeriesEpisodes(ctx context.Context, seriesID, defaultExt string) (eps []Episode, detail SeriesDetail, unsupportedReason string, err error) {
	const action = "get_series_info"
	params := url.Values{}
	params.Set("series_id", seriesID)
	body, err := c.get(ctx, action, params)
	if err != nil {
		return nil, SeriesDetail{}, "", err
	}
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, SeriesDetail{}, "", &DecodeError{Action: action, Err: err}
	}
	if info := subMap(root, "info"); info != nil {
		detail = SeriesDetail{
			Name:  str(info, "name"),
			Cover: str(info, "cover"),
			Plot:  str(info, "plot"),
		}
	}
	eps = ParseEpisodeTree(root["episodes"], c.creds, defaultExt, seriesID)
	if len(eps) == 0 {
		unsupportedReason = str(root, "message")
		if unsupportedReason == "" {
			if info := subMap(root, "info"); info != nil {
				unsupportedReason = str(info, "message")
			}
		}
		c.log.WithFields(logrus.Fields{"series_id": seriesID, "reason": unsupportedReason}).
			Debug("series info carried no structured episodes")
	}
	return eps, detail, unsupportedReason, nil
}
