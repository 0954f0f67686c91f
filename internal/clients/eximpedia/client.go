// Package eximpedia wraps the upstream customs data API behind a
// rate-limited, budget-aware client. All requests flow through one
// shared client so the provider's concurrency and pacing limits hold
// process-wide.
package eximpedia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/avramidis/tradewinds/internal/budget"
	"github.com/avramidis/tradewinds/internal/domain"
)

const (
	requestTimeout = 60 * time.Second
	maxAttempts    = 4

	defaultMaxConcurrent = 5
	defaultMinInterval   = time.Second

	shipmentEndpoint        = "/trade/shipment"
	importerSummaryEndpoint = "/importer/summary"
	exporterSummaryEndpoint = "/exporter/summary"
)

// availableWindowPattern extracts the data window from the provider's
// 400 message, e.g. "data available from 2016-01-01 to 2026-02-10".
var availableWindowPattern = regexp.MustCompile(`available from (\d{4}-\d{2}-\d{2}).*?to (\d{4}-\d{2}-\d{2})`)

// Client executes upstream requests with bounded concurrency and a
// minimum gap between submissions. Every page request that reaches the
// provider consumes one unit of the daily call budget.
type Client struct {
	cfg    Config
	tokens *TokenManager
	budget *budget.Tracker
	http   *http.Client
	sem    *semaphore.Weighted
	pace   *rate.Limiter
	log    zerolog.Logger

	backoffBase time.Duration
}

// NewClient wires a client to the shared token manager and budget
// tracker. tracker may be nil in tests that exercise only the wire
// behavior.
func NewClient(cfg Config, tokens *TokenManager, tracker *budget.Tracker, log zerolog.Logger) *Client {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = defaultMinInterval
	}
	return &Client{
		cfg:         cfg,
		tokens:      tokens,
		budget:      tracker,
		http:        &http.Client{Timeout: requestTimeout},
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		pace:        rate.NewLimiter(rate.Every(interval), 1),
		log:         log.With().Str("client", "eximpedia").Logger(),
		backoffBase: time.Second,
	}
}

// FetchAllShipments walks every page of a shipment query and returns the
// flattened records. When the upstream rejects the window with a 400
// naming its available data range, the query is clamped to the
// intersection and retried exactly once.
func (c *Client) FetchAllShipments(ctx context.Context, query *ShipmentQuery, kind budget.CallKind) ([]domain.RawRecord, error) {
	records, err := c.fetchPages(ctx, query, kind)
	if err == nil {
		return records, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		return nil, err
	}
	availStart, availEnd, ok := parseAvailableWindow(apiErr.Message)
	if !ok {
		return nil, err
	}
	clamped, ok := query.clampDates(availStart, availEnd)
	if !ok {
		c.log.Warn().
			Str("available_from", availStart).
			Str("available_to", availEnd).
			Msg("requested window is entirely outside the upstream data range")
		return nil, err
	}
	c.log.Warn().
		Str("available_from", availStart).
		Str("available_to", availEnd).
		Str("clamped_start", clamped.DateRange.StartDate).
		Str("clamped_end", clamped.DateRange.EndDate).
		Msg("date range rejected by upstream, retrying with clamped window")
	return c.fetchPages(ctx, clamped, kind)
}

func (c *Client) fetchPages(ctx context.Context, query *ShipmentQuery, kind budget.CallKind) ([]domain.RawRecord, error) {
	pageSize := capPageSize(c.cfg.PageSize)
	if query.PageSize > 0 && query.PageSize < pageSize {
		pageSize = query.PageSize
	}

	var all []domain.RawRecord
	total := 0
	for page := 1; ; page++ {
		q := *query
		q.PageNo = page
		q.PageSize = pageSize

		var resp shipmentPage
		if err := c.do(ctx, shipmentEndpoint, &q, kind, &resp); err != nil {
			return nil, err
		}
		if page == 1 {
			total = resp.total()
		}
		all = append(all, resp.Data...)

		c.log.Debug().
			Int("page", page).
			Int("fetched", len(resp.Data)).
			Int("accumulated", len(all)).
			Int("total", total).
			Msg("shipment page fetched")

		// An absent total stops after the first page rather than walking
		// an unbounded sequence.
		if len(all) >= total || len(resp.Data) == 0 {
			return all, nil
		}
	}
}

// ImporterSummary fetches aggregated importer-side counterparty rows.
func (c *Client) ImporterSummary(ctx context.Context, query *SummaryQuery, kind budget.CallKind) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, importerSummaryEndpoint, query, kind, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExporterSummary fetches aggregated exporter-side counterparty rows.
func (c *Client) ExporterSummary(ctx context.Context, query *SummaryQuery, kind budget.CallKind) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, exporterSummaryEndpoint, query, kind, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do runs one request through the concurrency gate, pacing limiter and
// retry ladder. The semaphore is held for the whole ladder so a request
// that is retrying still occupies its concurrency slot.
func (c *Client) do(ctx context.Context, endpoint string, payload any, kind budget.CallKind, out any) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	if err := c.pace.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", endpoint, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	exhausted := &APIError{StatusCode: 0, Message: "exhausted all retry attempts"}
	consecutive401 := 0

	for attempt := 0; attempt < maxAttempts; {
		status, respBody, sendErr := c.send(ctx, endpoint, token, body)
		if sendErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == maxAttempts-1 {
				return &APIError{StatusCode: 0, Message: sendErr.Error()}
			}
			wait := c.backoffBase << (attempt + 1)
			c.log.Warn().
				Err(sendErr).
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("transport error, backing off")
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			attempt++
			continue
		}

		switch {
		case status == http.StatusUnauthorized:
			// A refresh does not consume a retry slot, but two 401s in a
			// row mean the credential itself is bad.
			consecutive401++
			if consecutive401 >= 2 {
				return fmt.Errorf("%w: request rejected twice with 401", ErrTokenRefreshFailed)
			}
			c.log.Info().Str("endpoint", endpoint).Msg("token rejected, refreshing")
			c.tokens.Invalidate()
			if token, err = c.tokens.Token(ctx); err != nil {
				return err
			}
			continue

		case status == http.StatusTooManyRequests:
			consecutive401 = 0
			exhausted = &APIError{StatusCode: status, Message: string(respBody)}
			wait := c.backoffBase << (attempt + 2)
			c.log.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("rate limited by upstream, backing off")
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			attempt++
			continue

		case status != http.StatusOK:
			return &APIError{StatusCode: status, Message: string(respBody)}
		}

		if c.budget != nil {
			c.budget.RecordCall(kind)
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decoding %s response: %w", endpoint, err)
			}
		}
		return nil
	}
	return exhausted
}

func (c *Client) send(ctx context.Context, endpoint, token string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	return resp.StatusCode, respBody, nil
}

func parseAvailableWindow(message string) (start, end string, ok bool) {
	m := availableWindowPattern.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
