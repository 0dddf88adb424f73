package kaspi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aidosgk/kaspi-orders-backend/pkg/config"
	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
	"github.com/aidosgk/kaspi-orders-backend/pkg/metrics"
)

const (
	headerAuthToken = "X-Auth-Token"
	jsonAPIType     = "application/vnd.api+json"
	userAgent       = "kaspi-orders-backend/1.0"

	endpointOrders  = "orders"
	endpointEntries = "order_entries"

	entriesPageSize = 200
)

// fetchState drives the per-request retry loop.
type fetchState int

const (
	stateFetching fetchState = iota
	stateBackingOff
	stateSucceeded
	stateFailed
)

// statusError carries a non-2xx upstream response through the retry loop.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the marketplace orders API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	pageSize    int
	chunkDays   int
	workers     int
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration

	metrics *metrics.UpstreamMetrics
	logg    *logger.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a marketplace API client from configuration.
func NewClient(cfg config.KaspiConfig, logg *logger.Logger, m *metrics.UpstreamMetrics) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("kaspi token is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("kaspi base url is required")
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	chunkDays := cfg.ChunkDays
	if chunkDays <= 0 {
		chunkDays = 7
	}
	workers := cfg.ChunkWorkers
	if workers <= 0 {
		workers = 1
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost:   4,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.ConnectTimeout + cfg.RequestTimeout,
			Transport: transport,
		},
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		pageSize:    pageSize,
		chunkDays:   chunkDays,
		workers:     workers,
		maxAttempts: attempts,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		metrics:     m,
		logg:        logg,
		sleep:       sleepCtx,
	}, nil
}

// FetchOrders lists every order whose date field falls inside [From, To].
// The window is split into fixed-size chunks fetched by a bounded worker
// pool; any chunk failure fails the whole fetch. Results are deduplicated
// by order id.
func (c *Client) FetchOrders(ctx context.Context, params FetchParams) ([]Order, error) {
	if !params.To.After(params.From) {
		return nil, apperrors.New(apperrors.CodeInvalidRange, "fetch window end must be after start")
	}

	started := time.Now()
	chunks := splitWindow(params.From, params.To, c.chunkDays)
	results := make([][]Order, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			orders, err := c.fetchChunk(gctx, params, chunk)
			if err != nil {
				return err
			}
			results[i] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.metrics.ObserveFetch(endpointOrders, time.Since(started))

	seen := make(map[string]struct{})
	merged := make([]Order, 0)
	for _, chunk := range results {
		for _, order := range chunk {
			if _, ok := seen[order.ID]; ok {
				continue
			}
			seen[order.ID] = struct{}{}
			merged = append(merged, order)
		}
	}

	if c.logg != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"orders": len(merged),
			"chunks": len(chunks),
		})
		c.logg.Debug(ctx, "upstream fetch finished")
	}
	return merged, nil
}

type window struct {
	from time.Time
	to   time.Time
}

func splitWindow(from, to time.Time, chunkDays int) []window {
	step := time.Duration(chunkDays) * 24 * time.Hour
	var out []window
	for cursor := from; cursor.Before(to); cursor = cursor.Add(step) {
		end := cursor.Add(step)
		if end.After(to) {
			end = to
		}
		out = append(out, window{from: cursor, to: end})
	}
	return out
}

func (c *Client) fetchChunk(ctx context.Context, params FetchParams, win window) ([]Order, error) {
	field := params.DateField.String()
	if field == "" {
		field = "creationDate"
	}

	var orders []Order
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page[number]", strconv.Itoa(page))
		query.Set("page[size]", strconv.Itoa(c.pageSize))
		query.Set(fmt.Sprintf("filter[orders][%s][ge]", field), strconv.FormatInt(win.from.UnixMilli(), 10))
		query.Set(fmt.Sprintf("filter[orders][%s][le]", field), strconv.FormatInt(win.to.UnixMilli(), 10))
		if params.State != "" {
			query.Set("filter[orders][state]", params.State.String())
		}

		var envelope ordersResponse
		if err := c.getJSON(ctx, endpointOrders, "/orders", query, &envelope); err != nil {
			return nil, err
		}
		c.metrics.IncPage(endpointOrders)

		for _, resource := range envelope.Data {
			orders = append(orders, Order{ID: resource.ID, OrderAttributes: resource.Attributes})
		}

		if envelope.Meta.PageCount != nil {
			if page >= *envelope.Meta.PageCount {
				break
			}
			continue
		}
		if len(envelope.Data) < c.pageSize {
			break
		}
	}
	return orders, nil
}

// GetOrder fetches a single order by its upstream id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	var envelope orderResponse
	err := c.getJSON(ctx, endpointOrders, "/orders/"+url.PathEscape(orderID), nil, &envelope)
	if err != nil {
		if httpStatusOf(err) == http.StatusNotFound {
			return nil, apperrors.Wrap(apperrors.CodeOrderNotFound, err, fmt.Sprintf("order %s not found upstream", orderID))
		}
		return nil, err
	}
	if envelope.Data.ID == "" {
		return nil, apperrors.New(apperrors.CodeOrderNotFound, fmt.Sprintf("order %s not found upstream", orderID))
	}
	order := Order{ID: envelope.Data.ID, OrderAttributes: envelope.Data.Attributes}
	return &order, nil
}

// OrderEntries lists the line items of an order, resolving product codes
// from inline attributes first and the JSON:API included set second.
func (c *Client) OrderEntries(ctx context.Context, orderID string) ([]OrderEntry, error) {
	if orderID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	query := url.Values{}
	query.Set("page[size]", strconv.Itoa(entriesPageSize))
	query.Set("include", "product,merchantProduct,masterProduct")

	var envelope entriesResponse
	err := c.getJSON(ctx, endpointEntries, "/orders/"+url.PathEscape(orderID)+"/entries", query, &envelope)
	if err != nil {
		if httpStatusOf(err) == http.StatusNotFound {
			return nil, apperrors.Wrap(apperrors.CodeOrderNotFound, err, fmt.Sprintf("order %s not found upstream", orderID))
		}
		return nil, err
	}

	included := make(map[resourceIdentifier]codeRef, len(envelope.Included))
	for _, item := range envelope.Included {
		included[resourceIdentifier{Type: item.Type, ID: item.ID}] = item.Attributes
	}

	entries := make([]OrderEntry, 0, len(envelope.Data))
	for idx, resource := range envelope.Data {
		attrs := resource.Attributes
		qty := attrs.Quantity
		if qty <= 0 {
			qty = 1
		}
		total := firstFloat(attrs.TotalPrice, attrs.BasePrice, attrs.Price)
		unit := firstFloat(attrs.UnitPrice, attrs.BasePrice, attrs.Price)
		if unit == 0 && qty > 0 {
			unit = total / float64(qty)
		}

		entry := OrderEntry{
			ID:          resource.ID,
			LineIndex:   idx,
			ProductCode: productCode(resource, included),
			Quantity:    qty,
			UnitPrice:   unit,
			TotalPrice:  total,
		}
		if attrs.Offer != nil {
			entry.ProductName = attrs.Offer.Name
		}
		if attrs.Category != nil {
			entry.Category = attrs.Category.Title
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func productCode(resource entryResource, included map[resourceIdentifier]codeRef) string {
	attrs := resource.Attributes
	for _, ref := range []*codeRef{attrs.MerchantProduct, attrs.Product, attrs.Offer} {
		if ref != nil && ref.Code != "" {
			return ref.Code
		}
	}
	if attrs.Code != "" {
		return attrs.Code
	}
	if attrs.SKU != "" {
		return attrs.SKU
	}
	for _, rel := range []string{"product", "merchantProduct", "masterProduct"} {
		link, ok := resource.Relationships[rel]
		if !ok || link.Data == nil {
			continue
		}
		if ref, ok := included[*link.Data]; ok && ref.Code != "" {
			return ref.Code
		}
	}
	return ""
}

func firstFloat(candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

// getJSON performs one GET with retries. The request moves through an
// explicit state machine: fetching, backing off after a transient failure,
// then succeeded or failed.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	state := stateFetching
	attempt := 0
	var lastErr error

	for {
		switch state {
		case stateFetching:
			err := c.doRequest(ctx, path, query, out)
			if err == nil {
				state = stateSucceeded
				continue
			}
			if ctx.Err() != nil {
				return apperrors.Wrap(apperrors.CodeCancelled, ctx.Err(), "upstream request cancelled")
			}
			lastErr = err
			attempt++
			if !isRetryable(err) || attempt >= c.maxAttempts {
				state = stateFailed
				continue
			}
			c.metrics.IncRetry(endpoint, retryReason(err))
			if c.logg != nil {
				c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
					"attempt": attempt,
					"path":    path,
				}), "transient upstream failure, backing off")
			}
			state = stateBackingOff

		case stateBackingOff:
			if err := c.sleep(ctx, c.backoffDelay(attempt)); err != nil {
				return apperrors.Wrap(apperrors.CodeCancelled, err, "upstream request cancelled during backoff")
			}
			state = stateFetching

		case stateSucceeded:
			return nil

		case stateFailed:
			c.metrics.IncFailure(endpoint)
			return apperrors.Wrap(apperrors.CodeUpstream, lastErr,
				fmt.Sprintf("upstream request failed after %d attempt(s)", attempt))
		}
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", jsonAPIType)
	req.Header.Set("Content-Type", jsonAPIType)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(headerAuthToken, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding upstream response: %w", err)
	}
	return nil
}

// isRetryable treats rate limiting, server errors and transport failures as
// transient. Anything else (4xx, malformed payloads) fails immediately.
func isRetryable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests || status.StatusCode >= 500
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func retryReason(err error) string {
	var status *statusError
	if errors.As(err, &status) {
		if status.StatusCode == http.StatusTooManyRequests {
			return "rate_limited"
		}
		return "server_error"
	}
	return "network"
}

// backoffDelay doubles the base per attempt, caps it, then applies jitter so
// parallel chunk workers do not retry in lockstep.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.backoffBase
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.backoffCap > 0 && delay >= c.backoffCap {
			delay = c.backoffCap
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

func httpStatusOf(err error) int {
	var status *statusError
	if errors.As(err, &status) {
		return status.StatusCode
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
