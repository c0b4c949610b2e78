// Package order reads the order ledger from the order service over HTTP.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
	"github.com/utafrali/vingo-review/pkg/httpclient"
)

const serviceName = "order"

// Client implements repository.OrderReader against the order service.
type Client struct {
	baseURL string
	http    httpclient.Doer
	logger  *slog.Logger
}

var _ repository.OrderReader = (*Client)(nil)

// NewClient creates a client for the order service rooted at baseURL.
func NewClient(baseURL string, doer httpclient.Doer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
}

type orderListResponse struct {
	Data []domain.OrderRef `json:"data"`
}

// FindOrdersByUserAndItemStatus lists the user's orders containing the item in
// the given status.
func (c *Client) FindOrdersByUserAndItemStatus(ctx context.Context, userID, itemID, status string) ([]domain.OrderRef, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("item_id", itemID)
	q.Set("status", status)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/orders?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create order lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var se *httpclient.StatusError
		if httpclient.IsBreakerRejection(err) || errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %w", apperrors.ServiceUnavailable("order service unavailable"), err)
		}
		return nil, fmt.Errorf("call order service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var body orderListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode order lookup response: %w", err)
	}

	orders := make([]domain.OrderRef, 0, len(body.Data))
	for _, o := range body.Data {
		// Older order-service builds ignore the status filter.
		if o.Status != status {
			continue
		}
		orders = append(orders, o)
	}

	c.logger.DebugContext(ctx, "order lookup",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("orders", len(orders)),
	)
	return orders, nil
}
