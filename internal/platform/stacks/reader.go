// Package stacks implements the chain-facing clients for the market
// contract: read-only calls, transaction confirmation polling, and the
// wallet-delegated write path.
package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// ContractID names the deployed market contract.
type ContractID struct {
	Address string
	Name    string
}

// ReadClient issues read-only contract calls against a Stacks node API.
// It implements domain.MarketReader.
type ReadClient struct {
	baseURL  string
	contract ContractID
	// sender is the fallback sender address for read-only calls when no
	// user principal is in play. Read calls require one but it carries
	// no authority.
	sender     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.MarketReader = (*ReadClient)(nil)

// NewReadClient creates a ReadClient for the given node API and contract.
func NewReadClient(baseURL string, contract ContractID, sender string, timeout time.Duration, logger *slog.Logger) *ReadClient {
	return &ReadClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		contract:   contract,
		sender:     sender,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "stacks_read")),
	}
}

// callReadRequest is the node API body for read-only invocations.
type callReadRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// callReadResponse is the node API reply. Cause is set when okay=false.
type callReadResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// callRead performs one read-only invocation and decodes the Clarity
// result, unwrapping response-ok and optional-some layers.
func (c *ReadClient) callRead(ctx context.Context, function string, args []domain.ChainArg) (Value, bool, error) {
	hexArgs, err := EncodeArgs(args)
	if err != nil {
		return Value{}, false, err
	}
	body, err := json.Marshal(callReadRequest{Sender: c.sender, Arguments: hexArgs})
	if err != nil {
		return Value{}, false, fmt.Errorf("stacks: marshal read request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s",
		c.baseURL, c.contract.Address, c.contract.Name, function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Value{}, false, fmt.Errorf("stacks: build read request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Value{}, false, fmt.Errorf("stacks: call %s: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Value{}, false, fmt.Errorf("stacks: call %s: status %d: %s", function, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out callReadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Value{}, false, fmt.Errorf("stacks: decode %s response: %w", function, err)
	}
	if !out.Okay {
		return Value{}, false, fmt.Errorf("stacks: call %s rejected: %s", function, out.Cause)
	}

	val, err := DecodeHex(out.Result)
	if err != nil {
		return Value{}, false, fmt.Errorf("stacks: call %s: %w", function, err)
	}
	inner, some, err := val.Unwrap()
	if err != nil {
		return Value{}, false, fmt.Errorf("stacks: call %s: %w", function, err)
	}
	return inner, some, nil
}

func (c *ReadClient) readUint(ctx context.Context, function string, args []domain.ChainArg) (*big.Int, error) {
	v, some, err := c.callRead(ctx, function, args)
	if err != nil {
		return nil, err
	}
	if !some {
		return big.NewInt(0), nil
	}
	if v.Type != clarityUint && v.Type != clarityInt {
		return nil, fmt.Errorf("stacks: %s returned non-numeric clarity type 0x%02x", function, v.Type)
	}
	return v.Int, nil
}

func (c *ReadClient) readBool(ctx context.Context, function string, args []domain.ChainArg) (bool, error) {
	v, some, err := c.callRead(ctx, function, args)
	if err != nil {
		return false, err
	}
	if !some {
		return false, nil
	}
	if v.Type != clarityBoolTrue && v.Type != clarityBoolFalse {
		return false, fmt.Errorf("stacks: %s returned non-bool clarity type 0x%02x", function, v.Type)
	}
	return v.Bool, nil
}

// The deployed factory contract tracks one active market, so its getters
// take no market argument; the marketID parameter keys caching and logs.

// Pool returns the collateral pool in micro-units.
func (c *ReadClient) Pool(ctx context.Context, marketID int64) (*big.Int, error) {
	return c.readUint(ctx, "get-pool", nil)
}

// YesSupply returns the outstanding yes-share supply in micro-units.
func (c *ReadClient) YesSupply(ctx context.Context, marketID int64) (*big.Int, error) {
	return c.readUint(ctx, "get-q-yes", nil)
}

// NoSupply returns the outstanding no-share supply in micro-units.
func (c *ReadClient) NoSupply(ctx context.Context, marketID int64) (*big.Int, error) {
	return c.readUint(ctx, "get-q-no", nil)
}

// LiquidityParam returns the market maker's liquidity parameter.
func (c *ReadClient) LiquidityParam(ctx context.Context, marketID int64) (*big.Int, error) {
	return c.readUint(ctx, "get-b", nil)
}

// Open reports whether the market accepts trades.
func (c *ReadClient) Open(ctx context.Context, marketID int64) (bool, error) {
	return c.readBool(ctx, "get-status", nil)
}

// Outcome returns the resolved outcome, or OutcomeUnresolved while the
// market is live.
func (c *ReadClient) Outcome(ctx context.Context, marketID int64) (domain.MarketOutcome, error) {
	v, some, err := c.callRead(ctx, "get-outcome", nil)
	if err != nil {
		return domain.OutcomeUnresolved, err
	}
	if !some {
		return domain.OutcomeUnresolved, nil
	}
	switch v.Type {
	case clarityStringASCII, clarityStringUTF8:
	default:
		return domain.OutcomeUnresolved, fmt.Errorf("stacks: get-outcome returned clarity type 0x%02x", v.Type)
	}
	switch strings.ToLower(strings.TrimSpace(v.Str)) {
	case "":
		return domain.OutcomeUnresolved, nil
	case "yes":
		return domain.OutcomeYes, nil
	case "no":
		return domain.OutcomeNo, nil
	default:
		return domain.OutcomeUnresolved, fmt.Errorf("stacks: unrecognized outcome %q", v.Str)
	}
}

// YesBalance returns the principal's yes-share balance in micro-units.
func (c *ReadClient) YesBalance(ctx context.Context, marketID int64, principal string) (*big.Int, error) {
	return c.readUint(ctx, "get-yes-balance", []domain.ChainArg{domain.PrincipalArg(principal)})
}

// NoBalance returns the principal's no-share balance in micro-units.
func (c *ReadClient) NoBalance(ctx context.Context, marketID int64, principal string) (*big.Int, error) {
	return c.readUint(ctx, "get-no-balance", []domain.ChainArg{domain.PrincipalArg(principal)})
}

// RewardClaimed reports whether the principal already redeemed winnings.
func (c *ReadClient) RewardClaimed(ctx context.Context, marketID int64, principal string) (bool, error) {
	return c.readBool(ctx, "get-claimed", []domain.ChainArg{domain.PrincipalArg(principal)})
}

// Snapshot assembles the full projection for one market. Failed reads
// degrade the snapshot: the affected fields keep zero values and
// Degraded is set, so pricing falls back instead of erroring the caller.
func (c *ReadClient) Snapshot(ctx context.Context, marketID int64, principal string) (domain.MarketSnapshot, error) {
	snap := domain.MarketSnapshot{
		MarketID:  marketID,
		Pool:      big.NewInt(0),
		YesSupply: big.NewInt(0),
		NoSupply:  big.NewInt(0),
		Principal: principal,
		FetchedAt: time.Now().UTC(),
	}

	type read struct {
		name string
		fn   func() error
	}
	reads := []read{
		{"get-pool", func() error {
			v, err := c.Pool(ctx, marketID)
			if err == nil {
				snap.Pool = v
			}
			return err
		}},
		{"get-q-yes", func() error {
			v, err := c.YesSupply(ctx, marketID)
			if err == nil {
				snap.YesSupply = v
			}
			return err
		}},
		{"get-q-no", func() error {
			v, err := c.NoSupply(ctx, marketID)
			if err == nil {
				snap.NoSupply = v
			}
			return err
		}},
		{"get-b", func() error {
			v, err := c.LiquidityParam(ctx, marketID)
			if err == nil {
				snap.Liquidity = v
			}
			return err
		}},
		{"get-outcome", func() error {
			v, err := c.Outcome(ctx, marketID)
			if err == nil {
				snap.Outcome = v
			}
			return err
		}},
	}
	if principal != "" {
		reads = append(reads,
			read{"get-yes-balance", func() error {
				v, err := c.YesBalance(ctx, marketID, principal)
				if err == nil {
					snap.YesBalance = v
				}
				return err
			}},
			read{"get-no-balance", func() error {
				v, err := c.NoBalance(ctx, marketID, principal)
				if err == nil {
					snap.NoBalance = v
				}
				return err
			}},
			read{"get-claimed", func() error {
				v, err := c.RewardClaimed(ctx, marketID, principal)
				if err == nil {
					snap.RewardClaimed = v
				}
				return err
			}},
		)
	}

	for _, r := range reads {
		if err := ctx.Err(); err != nil {
			return snap, err
		}
		if err := r.fn(); err != nil {
			snap.Degraded = true
			c.logger.WarnContext(ctx, "stacks: snapshot read degraded",
				slog.Int64("market_id", marketID),
				slog.String("function", r.name),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, nil
}
