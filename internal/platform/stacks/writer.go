package stacks

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// WriteClient builds state-changing contract calls and hands them to the
// user's wallet for signing. It implements domain.MarketWriter.
//
// A returned txID only means the wallet broadcast the transaction; the
// confirmation poller decides whether it actually executed.
type WriteClient struct {
	contract ContractID
	wallet   domain.Wallet
	logger   *slog.Logger
}

var _ domain.MarketWriter = (*WriteClient)(nil)

// NewWriteClient creates a WriteClient signing through the given wallet.
func NewWriteClient(contract ContractID, wallet domain.Wallet, logger *slog.Logger) *WriteClient {
	return &WriteClient{
		contract: contract,
		wallet:   wallet,
		logger:   logger.With(slog.String("component", "stacks_write")),
	}
}

// submit checks wallet connectivity, relays the call, and insists on a
// transaction ID in the response.
func (c *WriteClient) submit(ctx context.Context, principal, function string, args ...domain.ChainArg) (string, error) {
	if principal == "" || !c.wallet.Connected(ctx, principal) {
		return "", domain.ErrWalletNotConnected
	}

	call := domain.ContractCall{
		ContractAddress: c.contract.Address,
		ContractName:    c.contract.Name,
		Function:        function,
		Args:            args,
	}
	txID, err := c.wallet.SignAndSubmit(ctx, principal, call)
	if err != nil {
		return "", fmt.Errorf("stacks: submit %s: %w", function, err)
	}
	if txID == "" {
		return "", domain.ErrNoTxID
	}

	c.logger.InfoContext(ctx, "stacks: tx submitted",
		slog.String("function", function),
		slog.String("principal", principal),
		slog.String("tx_id", txID),
	)
	return txID, nil
}

func buyFunction(option domain.OptionSide, capped bool) string {
	name := "buy-" + option.String()
	if capped {
		name += "-auto"
	}
	return name
}

func sellFunction(option domain.OptionSide, capped bool) string {
	name := "sell-" + option.String()
	if capped {
		name += "-auto"
	}
	return name
}

// BuyShares executes an uncapped market buy.
func (c *WriteClient) BuyShares(ctx context.Context, principal string, marketID int64, option domain.OptionSide, amount *big.Int) (string, error) {
	return c.submit(ctx, principal, buyFunction(option, false), domain.UintArg(amount))
}

// SellShares executes an uncapped market sell.
func (c *WriteClient) SellShares(ctx context.Context, principal string, marketID int64, option domain.OptionSide, amount *big.Int) (string, error) {
	return c.submit(ctx, principal, sellFunction(option, false), domain.UintArg(amount))
}

// BuySharesCapped executes the auto-capped limit buy: the contract stops
// filling at targetCap and aborts if spend would exceed maxCost.
func (c *WriteClient) BuySharesCapped(ctx context.Context, principal string, marketID int64, option domain.OptionSide, amount, targetCap, maxCost *big.Int) (string, error) {
	return c.submit(ctx, principal, buyFunction(option, true),
		domain.UintArg(amount), domain.UintArg(targetCap), domain.UintArg(maxCost))
}

// SellSharesCapped executes the auto-capped limit sell.
func (c *WriteClient) SellSharesCapped(ctx context.Context, principal string, marketID int64, option domain.OptionSide, amount, targetCap, maxCost *big.Int) (string, error) {
	return c.submit(ctx, principal, sellFunction(option, true),
		domain.UintArg(amount), domain.UintArg(targetCap), domain.UintArg(maxCost))
}

// Redeem claims winnings after resolution. The contract pays the caller,
// so the only argument is implicit in the signature.
func (c *WriteClient) Redeem(ctx context.Context, principal string, marketID int64) (string, error) {
	return c.submit(ctx, principal, "redeem")
}

// AddLiquidity deposits collateral into the market pool.
func (c *WriteClient) AddLiquidity(ctx context.Context, principal string, marketID int64, amount *big.Int) (string, error) {
	return c.submit(ctx, principal, "add-liquidity",
		domain.UintArg(big.NewInt(marketID)), domain.UintArg(amount))
}

// CreateMarket deploys a new market under the factory with seed liquidity.
func (c *WriteClient) CreateMarket(ctx context.Context, principal string, marketID int64, initialLiquidity *big.Int) (string, error) {
	return c.submit(ctx, principal, "create",
		domain.UintArg(big.NewInt(marketID)), domain.UintArg(initialLiquidity))
}
