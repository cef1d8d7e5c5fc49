package substance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"s3ripper/pkg/config"
	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/retry"
)

// Options configures a Client. Zero values fall back to the package defaults.
type Options struct {
	IMSURL        string
	GraphQLURL    string
	ClientID      string
	Scope         string
	UserAgent     string
	Origin        string
	Timeout       time.Duration
	MaxAttempts   int
	BackoffFactor float64
	// HTTPClient replaces the default client; its Timeout is left untouched
	HTTPClient *http.Client
	Logger     logger.Logger
}

// OptionsFromConfig builds client options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, log logger.Logger) Options {
	return Options{
		IMSURL:        cfg.Adobe.IMSURL,
		GraphQLURL:    cfg.Adobe.GraphQLURL,
		ClientID:      cfg.Adobe.ClientID,
		Scope:         cfg.Adobe.Scope,
		UserAgent:     cfg.Adobe.UserAgent,
		Origin:        cfg.Adobe.Origin,
		Timeout:       cfg.Transport.Timeout,
		MaxAttempts:   cfg.Transport.MaxAttempts,
		BackoffFactor: cfg.Transport.BackoffFactor,
		Logger:        log,
	}
}

// Client talks to Adobe IMS, the Substance 3D GraphQL API and the asset
// download service. It holds no credentials; every call receives them.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	imsURL     string
	graphqlURL string
	clientID   string
	scope      string
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a new API client
func NewClient(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "substance")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		// The default client follows redirects, up to 10 hops
		httpClient = &http.Client{Timeout: timeout}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = retry.DefaultMaxAttempts
	}

	origin := orDefault(opts.Origin, DefaultOrigin)

	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent": orDefault(opts.UserAgent, DefaultUserAgent),
			"Origin":     origin,
			"Referer":    origin,
		},
		imsURL:     orDefault(opts.IMSURL, DefaultIMSURL),
		graphqlURL: orDefault(opts.GraphQLURL, DefaultGraphQLURL),
		clientID:   orDefault(opts.ClientID, DefaultClientID),
		scope:      orDefault(opts.Scope, DefaultScope),
		retry:      retry.TransportConfig(maxAttempts, opts.BackoffFactor, log),
		logger:     log,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// requestBuilder creates a fresh request for every attempt, since a
// request body can only be read once.
type requestBuilder func(ctx context.Context) (*http.Request, error)

// send performs a request with the transport retry policy. On success the
// caller owns the response body. Failures are typed: auth for 401/403,
// not_found for 404, transport once retries for network errors, 429 and
// 5xx are exhausted.
func (c *Client) send(ctx context.Context, build requestBuilder) (*http.Response, error) {
	resp, err := retry.DoWithResult(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeInvalid, err, "failed to create request")
		}
		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}
		if err := c.checkResponseStatus(resp); err != nil {
			drainAndClose(resp.Body)
			return nil, err
		}
		return resp, nil
	}, c.retry)

	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeTransport,
				Message: fmt.Sprintf("giving up after %d attempts", exhausted.Attempts),
				Err:     exhausted.Err,
			}
		}
		return nil, err
	}
	return resp, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      logger.RedactURL(req.URL.String()),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode,
		float64(duration.Microseconds())/1000)

	return resp, nil
}

// checkResponseStatus maps a non-2xx response to a typed error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errorType := errs.FromStatusCode(resp.StatusCode)
	var message string
	switch errorType {
	case errs.ErrorTypeAuth:
		message = "credentials rejected"
	case errs.ErrorTypeNotFound:
		message = "resource not found"
	case errs.ErrorTypeRateLimit:
		message = "rate limit exceeded"
	case errs.ErrorTypeServerError:
		message = "server error"
	default:
		message = "unexpected response"
	}
	return errs.WithCode(errorType, resp.StatusCode, message)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

func bodyPreview(body []byte) string {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return preview
}
