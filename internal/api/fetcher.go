package api

import (
	"context"
	"fmt"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/scheduler"
)

// FetcherFor adapts the client onto the scheduler's Fetcher interface
// for a single trading symbol. Order book depth limits the pull payload;
// 0 fetches all levels.
func FetcherFor(c *Client, symbol string, bookDepth int) scheduler.Fetcher {
	return scheduler.FetcherFunc(func(ctx context.Context, key model.EndpointKey) (any, error) {
		switch key {
		case model.KeyTicker:
			return c.GetTicker(ctx, symbol)
		case model.KeyOrderBook:
			return c.GetOrderBook(ctx, symbol, bookDepth)
		case model.KeyTrades:
			return c.GetTrades(ctx, symbol)
		case model.KeyBalances:
			return c.GetBalances(ctx)
		case model.KeyOrders:
			return c.GetOrders(ctx)
		case model.KeyBotStatus:
			return c.GetBotStatus(ctx)
		case model.KeyLogs:
			return c.GetLogs(ctx)
		}
		return nil, fmt.Errorf("unknown endpoint %q", key)
	})
}
