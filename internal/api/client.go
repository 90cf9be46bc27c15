package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Client provides access to the exchange REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// GetTicker fetches the current ticker for a symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var wire tickerWire
	if err := c.get(ctx, "/market/ticker", query, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}

// GetOrderBook fetches the order book for a symbol, limited to depth
// levels per side (0 = all levels).
func (c *Client) GetOrderBook(ctx context.Context, symbol string, depth int) (*model.OrderBook, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}

	var wire orderBookWire
	if err := c.get(ctx, "/market/orderbook", query, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}

// GetTrades fetches recent public trades for a symbol.
func (c *Client) GetTrades(ctx context.Context, symbol string) ([]model.Trade, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var wire tradesWire
	if err := c.get(ctx, "/market/trades", query, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}

// GetBalances fetches all wallet balances.
func (c *Client) GetBalances(ctx context.Context) ([]model.Balance, error) {
	var wire balancesWire
	if err := c.get(ctx, "/account/balances", nil, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}

// GetOrders fetches all open orders.
func (c *Client) GetOrders(ctx context.Context) ([]model.Order, error) {
	var wire ordersWire
	if err := c.get(ctx, "/account/orders", nil, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}

// GetBotStatus fetches the trading bot's operational state.
func (c *Client) GetBotStatus(ctx context.Context) (*model.BotStatus, error) {
	var wire botStatusWire
	if err := c.get(ctx, "/bot/status", nil, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}

// GetLogs fetches recent bot log entries.
func (c *Client) GetLogs(ctx context.Context) ([]model.LogEntry, error) {
	var wire logsWire
	if err := c.get(ctx, "/bot/logs", nil, &wire); err != nil {
		return nil, err
	}
	return wire.ToModel(), nil
}
