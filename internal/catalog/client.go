// Package catalog talks to the Harvard Art Museums object API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"artdiscover/pkg/models"
)

const (
	DefaultPageMax     = 100
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = 150 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
)

// Recorder receives one entry per catalog request.
type Recorder interface {
	Record(ctx context.Context, e models.JournalEntry) error
}

// Client fetches random paintings.
type Client struct {
	BaseURL     string
	APIKey      string
	HTTP        *http.Client
	PageMax     int // pages are drawn from [1, PageMax]
	MaxAttempts int // requests per fetch before giving up on empty pages
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Journal     Recorder
	Logger      *zap.Logger

	intn  func(n int) int
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		APIKey:      apiKey,
		HTTP:        &http.Client{Timeout: 12 * time.Second},
		PageMax:     DefaultPageMax,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Logger:      zap.NewNop(),
	}
}

type sessionKey struct{}

// WithSessionID tags requests made with ctx in the journal.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// FetchArtwork returns the first record of a random page that passes bans.
// Empty pages are retried on a different page with exponential backoff,
// up to MaxAttempts requests.
func (c *Client) FetchArtwork(ctx context.Context, bans []models.Ban) (models.Artwork, error) {
	pageMax := c.PageMax
	if pageMax <= 0 {
		pageMax = DefaultPageMax
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	page := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, c.backoff(attempt-1)); err != nil {
				return models.Artwork{}, err
			}
		}

		page = c.NextPage(page, pageMax)
		resp, err := c.fetchPage(ctx, attempt, page, bans)
		if err != nil {
			return models.Artwork{}, err
		}
		if len(resp.Records) > 0 {
			return ToArtwork(resp.Records[0]), nil
		}

		if resp.Info != nil {
			if resp.Info.TotalRecords == 0 {
				return models.Artwork{}, ErrNoResults
			}
			if resp.Info.Pages > 0 && resp.Info.Pages < pageMax {
				pageMax = resp.Info.Pages
			}
		}
		c.logger().Debug("empty catalog page, retrying",
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Int("page_max", pageMax))
	}
	return models.Artwork{}, ErrNoResults
}

// NextPage draws a page uniformly from [1, last], skipping prev when the
// range has room for another page.
func (c *Client) NextPage(prev, last int) int {
	if last <= 1 {
		return 1
	}
	intn := c.intn
	if intn == nil {
		intn = rand.IntN
	}
	if prev < 1 || prev > last {
		return intn(last) + 1
	}
	p := intn(last-1) + 1
	if p >= prev {
		p++
	}
	return p
}

func (c *Client) fetchPage(ctx context.Context, attempt, page int, bans []models.Ban) (*models.CatalogResponse, error) {
	raw, err := BuildQuery(c.BaseURL, c.APIKey, page, bans)
	if err != nil {
		return nil, err
	}

	entry := models.JournalEntry{
		SessionID: sessionID(ctx),
		Page:      page,
		BanTerms:  countTerms(bans),
		Attempt:   attempt,
		At:        time.Now().UTC(),
	}
	start := time.Now()
	defer func() {
		entry.DurationMS = time.Since(start).Milliseconds()
		c.record(ctx, entry)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		entry.Error = err.Error()
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger().Debug("catalog request", zap.String("url", redact(raw)), zap.Int("attempt", attempt))

	resp, err := c.httpClient().Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redact(uerr.URL)
		}
		entry.Error = err.Error()
		return nil, fmt.Errorf("catalog: request: %w", err)
	}
	defer resp.Body.Close()
	entry.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &StatusError{Code: resp.StatusCode, Body: string(body)}
		entry.Error = serr.Error()
		return nil, serr
	}

	var out models.CatalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		entry.Error = err.Error()
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	entry.Records = len(out.Records)
	return &out, nil
}

func (c *Client) record(ctx context.Context, e models.JournalEntry) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.Record(context.WithoutCancel(ctx), e); err != nil {
		c.logger().Warn("journal write failed", zap.Error(err))
	}
}

func (c *Client) backoff(retry int) time.Duration {
	base, limit := c.BaseDelay, c.MaxDelay
	if base <= 0 {
		return 0
	}
	d := base << (retry - 1)
	if limit > 0 && (d > limit || d <= 0) {
		d = limit
	}
	return d
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}
