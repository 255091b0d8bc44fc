// Package ods talks to the Opendatasoft catalog: realtime record push and
// delete, and dataset publication through the automation API.
package ods

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/opendatabs/odsync/internal/utils"
	"github.com/opendatabs/odsync/internal/version"
	"golang.org/x/time/rate"
)

const (
	HeaderAuthorization = "Authorization"

	DefaultTimeout      = 60 * time.Second
	DefaultPublishDelay = 5 * time.Second

	v1PublishDataset = "/api/automation/v1.0/datasets/%s/publish/"
)

// Config holds what the client needs to talk to one catalog.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// PublishDelay spaces consecutive dataset publish requests.
	PublishDelay time.Duration
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ods: invalid base url %q", c.BaseURL)
	}
	return nil
}

// Client is safe for sequential use by one run.
type Client struct {
	http    *req.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New builds a catalog client. Requests are never retried: a failed run is
// retried by the next scheduled run.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PublishDelay < 0 {
		cfg.PublishDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := req.C().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetUserAgent(version.UserAgent()).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	limit := rate.Inf
	if cfg.PublishDelay > 0 {
		limit = rate.Every(cfg.PublishDelay)
	}

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (c *Client) apiKeyHeader(key string) string {
	return "apikey " + key
}

// PublishDataset asks the catalog to (re)publish the dataset with the given uid.
func (c *Client) PublishDataset(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return ErrNoDataset
	}
	if c.cfg.APIKey == "" {
		return ErrNoAPIKey
	}

	c.logger.Info("publishing ods dataset", "dataset", uid)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderAuthorization, c.apiKeyHeader(c.cfg.APIKey)).
		Post(fmt.Sprintf(v1PublishDataset, url.PathEscape(uid)))

	return handleAPIError(resp, err, "publish dataset "+uid)
}

// PublishDatasets publishes the datasets one after another, waiting
// PublishDelay between two requests. It stops at the first failure.
func (c *Client) PublishDatasets(ctx context.Context, uids []string) error {
	for i, uid := range uids {
		if i > 0 {
			c.logger.Info("waiting before next publish request", "delay", c.cfg.PublishDelay)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("ods: waiting to publish %s: %w", uid, err)
		}
		if err := c.PublishDataset(ctx, uid); err != nil {
			return err
		}
	}
	return nil
}

// PushTarget identifies one realtime push endpoint of a dataset.
type PushTarget struct {
	URL       string
	DeleteURL string
	Key       string
	// APIKey is only required by datasets that are not public yet.
	APIKey string
}

func (t *PushTarget) String() string {
	return utils.MaskURL(t.URL)
}

func (c *Client) realtimeRequest(ctx context.Context, target *PushTarget) *req.Request {
	r := c.http.R().
		SetContext(ctx).
		SetQueryParam("pushkey", target.Key)
	if target.APIKey != "" {
		r.SetHeader(HeaderAuthorization, c.apiKeyHeader(target.APIKey))
	}
	return r
}

// Push appends or updates records through the realtime API. The push URL is
// absolute and independent from BaseURL.
func (c *Client) Push(ctx context.Context, target *PushTarget, records any) error {
	if target == nil || target.URL == "" {
		return ErrNoPushURL
	}
	if target.Key == "" {
		return ErrNoPushKey
	}

	resp, err := c.realtimeRequest(ctx, target).
		SetBodyJsonMarshal(records).
		Post(target.URL)
	return handleAPIError(resp, err, "realtime push")
}

// Delete removes records through the realtime delete endpoint.
func (c *Client) Delete(ctx context.Context, target *PushTarget, records any) error {
	if target == nil || target.DeleteURL == "" {
		return ErrNoDeleteURL
	}
	if target.Key == "" {
		return ErrNoPushKey
	}

	resp, err := c.realtimeRequest(ctx, target).
		SetBodyJsonMarshal(records).
		Post(target.DeleteURL)
	return handleAPIError(resp, err, "realtime delete")
}
