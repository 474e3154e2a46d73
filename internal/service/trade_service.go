package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/pricing"
	"github.com/Tolujoh-n/bitcoinworld/internal/workflow"
)

// seriesWindow bounds how far back the chart series reaches.
const seriesWindow = 30 * 24 * time.Hour

// TradeService fronts the trade and redemption workflows and serves the
// ledger-derived read models: history, order book and chart series.
type TradeService struct {
	trades       *workflow.TradeWorkflow
	redemptions  *workflow.RedemptionWorkflow
	store        domain.TradeStore
	polls        domain.PollStore
	pricer       *pricing.Reconciler
	historyLimit int
	logger       *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	trades *workflow.TradeWorkflow,
	redemptions *workflow.RedemptionWorkflow,
	store domain.TradeStore,
	polls domain.PollStore,
	pricer *pricing.Reconciler,
	historyLimit int,
	logger *slog.Logger,
) *TradeService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &TradeService{
		trades:       trades,
		redemptions:  redemptions,
		store:        store,
		polls:        polls,
		pricer:       pricer,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Execute runs one trade through the workflow.
func (s *TradeService) Execute(ctx context.Context, user domain.User, req domain.TradeRequest) (domain.Trade, error) {
	return s.trades.Execute(ctx, user, req)
}

// Redeem claims the user's winnings on a resolved poll.
func (s *TradeService) Redeem(ctx context.Context, user domain.User, pollID string) (domain.RewardClaim, error) {
	return s.redemptions.Execute(ctx, user, pollID)
}

// Claimed reports whether the user already redeemed on the poll.
func (s *TradeService) Claimed(ctx context.Context, pollID, userID string) (bool, error) {
	claimed, err := s.store.RewardClaimed(ctx, pollID, userID)
	if err != nil {
		return false, fmt.Errorf("trade_service: claimed: %w", err)
	}
	return claimed, nil
}

// History returns a poll's recent trades.
func (s *TradeService) History(ctx context.Context, pollID string, opts domain.ListOpts) ([]domain.Trade, error) {
	if opts.Limit <= 0 || opts.Limit > s.historyLimit {
		opts.Limit = s.historyLimit
	}
	trades, err := s.store.ListByPoll(ctx, pollID, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: history %s: %w", pollID, err)
	}
	return trades, nil
}

// UserHistory returns a user's recent trades across all polls.
func (s *TradeService) UserHistory(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	if opts.Limit <= 0 || opts.Limit > s.historyLimit {
		opts.Limit = s.historyLimit
	}
	trades, err := s.store.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: user history: %w", err)
	}
	return trades, nil
}

// OrderBook aggregates recent ledger trades into display levels. Prices
// are bucketed to cents; there is no matching engine behind this view.
func (s *TradeService) OrderBook(ctx context.Context, pollID string) (domain.OrderBook, error) {
	trades, err := s.store.ListByPoll(ctx, pollID, domain.ListOpts{Limit: s.historyLimit})
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("trade_service: order book %s: %w", pollID, err)
	}
	return buildOrderBook(trades), nil
}

// Series returns the minute-bucketed price history for a poll's chart.
func (s *TradeService) Series(ctx context.Context, pollID string) ([]pricing.ChartPoint, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("trade_service: series %s: %w", pollID, err)
	}
	trades, err := s.store.ListByPollSince(ctx, pollID, time.Now().Add(-seriesWindow))
	if err != nil {
		return nil, fmt.Errorf("trade_service: series %s: %w", pollID, err)
	}
	return pricing.PriceSeries(trades, len(poll.Options)), nil
}

func buildOrderBook(trades []domain.Trade) domain.OrderBook {
	buys := make(map[float64]float64)
	sells := make(map[float64]float64)
	for _, t := range trades {
		price := math.Round(t.Price*100) / 100
		if t.Side == domain.TradeBuy {
			buys[price] += t.Amount
		} else {
			sells[price] += t.Amount
		}
	}

	book := domain.OrderBook{
		Buys:  bookLevels(buys, true),
		Sells: bookLevels(sells, false),
	}
	return book
}

// bookLevels sorts buy levels best-first (highest price) and sell levels
// lowest-first.
func bookLevels(levels map[float64]float64, descending bool) []domain.BookLevel {
	out := make([]domain.BookLevel, 0, len(levels))
	for price, amount := range levels {
		out = append(out, domain.BookLevel{Price: price, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}
