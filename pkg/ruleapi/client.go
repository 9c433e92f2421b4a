// Package ruleapi provides a client for the remote rule service: document
// segmentation, atomicity detection, splitting, identification,
// classification, common-element extraction and CDSRL generation.
package ruleapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/internal/resilience"
)

// Default base URL of the rule service.
const defaultBaseURL = "http://120.26.59.7:23262"

// Client defines the rule service operations.
type Client interface {
	// Call posts a JSON payload to one endpoint under its retry policy and
	// gate, and returns the raw response body.
	Call(ctx context.Context, e Endpoint, payload any) (json.RawMessage, error)
	// Upload sends a source document and returns its clauses in order.
	Upload(ctx context.Context, filename string, content []byte) ([]model.Clause, error)
	// CheckAtomicity reports whether a clause is atomic or complex.
	CheckAtomicity(ctx context.Context, text string) (model.Atomicity, error)
	// Split decomposes a complex clause into atomic rules.
	Split(ctx context.Context, text string) ([]model.AtomicRule, error)
	// Identify returns the auto-supervision sentinel for an atomic rule.
	Identify(ctx context.Context, text string) (model.Supervision, error)
	// Classify returns the supervision category and type. Missing keys
	// decode as empty strings.
	Classify(ctx context.Context, text string) (category, typ string, err error)
	// ExtractCommonElement returns the structured entities of a rule.
	ExtractCommonElement(ctx context.Context, text, category string) (json.RawMessage, error)
	// GenerateCDSRL returns the supervision-language artifact of a rule.
	GenerateCDSRL(ctx context.Context, text, category string, entityInfo json.RawMessage) (json.RawMessage, error)
}

// Gate admits a single attempt of a remote call.
type Gate interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Option configures the rule service client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPaths overrides endpoint paths. Unknown endpoints are ignored.
func WithPaths(paths map[Endpoint]string) Option {
	return func(c *httpClient) {
		for e, p := range paths {
			if e.Valid() && p != "" {
				c.paths[e] = p
			}
		}
	}
}

// WithRetry sets the retry policy of one endpoint.
func WithRetry(e Endpoint, cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry[e] = cfg
	}
}

// WithGate routes every attempt on the given endpoints through g.
func WithGate(g Gate, endpoints ...Endpoint) Option {
	return func(c *httpClient) {
		for _, e := range endpoints {
			c.gates[e] = g
		}
	}
}

// WithAttemptTimeout bounds a single attempt. Zero means no bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.attemptTimeout = d
	}
}

type httpClient struct {
	baseURL        string
	http           *http.Client
	paths          map[Endpoint]string
	retry          map[Endpoint]resilience.RetryConfig
	gates          map[Endpoint]Gate
	attemptTimeout time.Duration
}

// NewClient creates a new rule service client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		paths: DefaultPaths(),
		retry: DefaultRetry(),
		gates: make(map[Endpoint]Gate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call posts payload as JSON to the endpoint and returns the raw 200 body.
// A 500 or a network failure is retried under the endpoint's policy; any
// other status returns a *StatusError immediately.
func (c *httpClient) Call(ctx context.Context, e Endpoint, payload any) (json.RawMessage, error) {
	if !e.Valid() {
		return nil, eris.Errorf("ruleapi: unknown endpoint %q", e)
	}
	if payload == nil {
		return nil, ErrNoData
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "ruleapi: marshal %s payload", e)
	}
	return c.post(ctx, e, func() (io.Reader, string, error) {
		return bytes.NewReader(body), "application/json", nil
	})
}

// requestBody builds a fresh body for each attempt.
type requestBody func() (io.Reader, string, error)

func (c *httpClient) post(ctx context.Context, e Endpoint, build requestBody) (json.RawMessage, error) {
	policy, ok := c.retry[e]
	if !ok {
		policy = resilience.DefaultRetryConfig()
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.RetryLogger("ruleapi", string(e))
	}

	return resilience.DoVal(ctx, policy, func(ctx context.Context) (json.RawMessage, error) {
		gate := c.gates[e]
		if gate == nil {
			return c.attempt(ctx, e, build)
		}
		var out json.RawMessage
		err := gate.Do(ctx, func(ctx context.Context) error {
			var aerr error
			out, aerr = c.attempt(ctx, e, build)
			return aerr
		})
		return out, err
	})
}

func (c *httpClient) attempt(ctx context.Context, e Endpoint, build requestBody) (json.RawMessage, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	body, contentType, err := build()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.paths[e], body)
	if err != nil {
		return nil, eris.Wrapf(err, "ruleapi: create %s request", e)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "ruleapi: %s request", e), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "ruleapi: read %s response", e), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.RawMessage(respBody), nil
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("ruleapi: %s server error %d", e, resp.StatusCode), resp.StatusCode)
	default:
		return nil, &StatusError{Endpoint: e, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
}

// Upload sends the document as multipart form field "file".
func (c *httpClient) Upload(ctx context.Context, filename string, content []byte) ([]model.Clause, error) {
	if len(content) == 0 {
		return nil, eris.New("ruleapi: no file provided")
	}

	raw, err := c.post(ctx, EndpointUpload, func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return nil, "", eris.Wrap(err, "ruleapi: create form file")
		}
		if _, err := fw.Write(content); err != nil {
			return nil, "", eris.Wrap(err, "ruleapi: write form file")
		}
		if err := mw.Close(); err != nil {
			return nil, "", eris.Wrap(err, "ruleapi: close multipart writer")
		}
		return &buf, mw.FormDataContentType(), nil
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		RuleList []model.Clause `json:"ruleList"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, eris.Wrap(err, "ruleapi: decode upload response")
	}
	return resp.RuleList, nil
}
