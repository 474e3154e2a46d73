package workflow

import (
	"context"
	"math/big"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// Fakes for the chain and storage boundaries. Each records what it was
// asked to do so tests can assert on the ordering invariant.

type fakePollStore struct {
	polls   map[string]domain.Poll
	volume  map[string]float64
	volErr  error
	pctCall [][]float64
}

func newFakePollStore(polls ...domain.Poll) *fakePollStore {
	s := &fakePollStore{polls: make(map[string]domain.Poll), volume: make(map[string]float64)}
	for _, p := range polls {
		s.polls[p.ID] = p
	}
	return s
}

func (s *fakePollStore) Create(_ context.Context, p domain.Poll) error {
	s.polls[p.ID] = p
	return nil
}

func (s *fakePollStore) Update(_ context.Context, p domain.Poll) error {
	if _, ok := s.polls[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.polls[p.ID] = p
	return nil
}

func (s *fakePollStore) GetByID(_ context.Context, id string) (domain.Poll, error) {
	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePollStore) List(context.Context, domain.PollFilter, domain.ListOpts) ([]domain.Poll, error) {
	var out []domain.Poll
	for _, p := range s.polls {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakePollStore) Count(context.Context, domain.PollFilter) (int64, error) {
	return int64(len(s.polls)), nil
}

func (s *fakePollStore) Resolve(_ context.Context, id string, winningOption int) error {
	p, ok := s.polls[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.IsResolved {
		return domain.ErrPollResolved
	}
	p.IsResolved = true
	p.WinningOption = &winningOption
	s.polls[id] = p
	return nil
}

func (s *fakePollStore) SetOptionPercentages(_ context.Context, id string, percentages []float64) error {
	s.pctCall = append(s.pctCall, percentages)
	p, ok := s.polls[id]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range p.Options {
		if i < len(percentages) {
			p.Options[i].Percentage = percentages[i]
		}
	}
	s.polls[id] = p
	return nil
}

func (s *fakePollStore) AddVolume(_ context.Context, id string, amount float64) error {
	if s.volErr != nil {
		return s.volErr
	}
	s.volume[id] += amount
	return nil
}

func (s *fakePollStore) ListResolvedBefore(context.Context, time.Time, domain.ListOpts) ([]domain.Poll, error) {
	return nil, nil
}

type fakeTradeStore struct {
	inserted  []domain.Trade
	insertErr error
	claims    []domain.RewardClaim
	claimErr  error
	claimed   map[string]bool
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{claimed: make(map[string]bool)}
}

func (s *fakeTradeStore) Insert(_ context.Context, t domain.Trade) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, t)
	return nil
}

func (s *fakeTradeStore) ListByPoll(context.Context, string, domain.ListOpts) ([]domain.Trade, error) {
	return s.inserted, nil
}

func (s *fakeTradeStore) ListByUser(context.Context, string, domain.ListOpts) ([]domain.Trade, error) {
	return s.inserted, nil
}

func (s *fakeTradeStore) CountByPoll(context.Context, string) (int64, error) {
	return int64(len(s.inserted)), nil
}

func (s *fakeTradeStore) ListByPollSince(context.Context, string, time.Time) ([]domain.Trade, error) {
	return s.inserted, nil
}

func (s *fakeTradeStore) MarkRewardClaimed(_ context.Context, claim domain.RewardClaim) error {
	if s.claimErr != nil {
		return s.claimErr
	}
	key := claim.PollID + "/" + claim.UserID
	if s.claimed[key] {
		return domain.ErrAlreadyClaimed
	}
	s.claimed[key] = true
	s.claims = append(s.claims, claim)
	return nil
}

func (s *fakeTradeStore) RewardClaimed(_ context.Context, pollID, userID string) (bool, error) {
	return s.claimed[pollID+"/"+userID], nil
}

type fakeReader struct {
	snap    domain.MarketSnapshot
	snapErr error
	open    bool
	openErr error
}

func (r *fakeReader) Pool(context.Context, int64) (*big.Int, error)           { return r.snap.Pool, nil }
func (r *fakeReader) YesSupply(context.Context, int64) (*big.Int, error)      { return r.snap.YesSupply, nil }
func (r *fakeReader) NoSupply(context.Context, int64) (*big.Int, error)       { return r.snap.NoSupply, nil }
func (r *fakeReader) Outcome(context.Context, int64) (domain.MarketOutcome, error) {
	return r.snap.Outcome, nil
}
func (r *fakeReader) Open(context.Context, int64) (bool, error) { return r.open, r.openErr }
func (r *fakeReader) LiquidityParam(context.Context, int64) (*big.Int, error) {
	return r.snap.Liquidity, nil
}
func (r *fakeReader) YesBalance(context.Context, int64, string) (*big.Int, error) {
	return r.snap.YesBalance, nil
}
func (r *fakeReader) NoBalance(context.Context, int64, string) (*big.Int, error) {
	return r.snap.NoBalance, nil
}
func (r *fakeReader) RewardClaimed(context.Context, int64, string) (bool, error) {
	return r.snap.RewardClaimed, nil
}
func (r *fakeReader) Snapshot(context.Context, int64, string) (domain.MarketSnapshot, error) {
	return r.snap, r.snapErr
}

// writerCall records one submission.
type writerCall struct {
	fn        string
	principal string
	marketID  int64
	side      domain.OptionSide
	amount    *big.Int
	targetCap *big.Int
	maxCost   *big.Int
}

type fakeWriter struct {
	txID  string
	err   error
	calls []writerCall
}

func (w *fakeWriter) record(c writerCall) (string, error) {
	w.calls = append(w.calls, c)
	return w.txID, w.err
}

func (w *fakeWriter) BuyShares(_ context.Context, principal string, marketID int64, side domain.OptionSide, amount *big.Int) (string, error) {
	return w.record(writerCall{fn: "buy", principal: principal, marketID: marketID, side: side, amount: amount})
}

func (w *fakeWriter) SellShares(_ context.Context, principal string, marketID int64, side domain.OptionSide, amount *big.Int) (string, error) {
	return w.record(writerCall{fn: "sell", principal: principal, marketID: marketID, side: side, amount: amount})
}

func (w *fakeWriter) BuySharesCapped(_ context.Context, principal string, marketID int64, side domain.OptionSide, amount, targetCap, maxCost *big.Int) (string, error) {
	return w.record(writerCall{fn: "buy-capped", principal: principal, marketID: marketID, side: side, amount: amount, targetCap: targetCap, maxCost: maxCost})
}

func (w *fakeWriter) SellSharesCapped(_ context.Context, principal string, marketID int64, side domain.OptionSide, amount, targetCap, maxCost *big.Int) (string, error) {
	return w.record(writerCall{fn: "sell-capped", principal: principal, marketID: marketID, side: side, amount: amount, targetCap: targetCap, maxCost: maxCost})
}

func (w *fakeWriter) Redeem(_ context.Context, principal string, marketID int64) (string, error) {
	return w.record(writerCall{fn: "redeem", principal: principal, marketID: marketID})
}

func (w *fakeWriter) AddLiquidity(_ context.Context, principal string, marketID int64, amount *big.Int) (string, error) {
	return w.record(writerCall{fn: "add-liquidity", principal: principal, marketID: marketID, amount: amount})
}

func (w *fakeWriter) CreateMarket(_ context.Context, principal string, marketID int64, initialLiquidity *big.Int) (string, error) {
	return w.record(writerCall{fn: "create", principal: principal, marketID: marketID, amount: initialLiquidity})
}

type fakeWatcher struct {
	record domain.TxRecord
	err    error
	waited []string
}

func (f *fakeWatcher) WaitForConfirmation(_ context.Context, txID string) (domain.TxRecord, error) {
	f.waited = append(f.waited, txID)
	if f.err != nil {
		return domain.TxRecord{TxID: txID, Status: domain.TxPending}, f.err
	}
	rec := f.record
	rec.TxID = txID
	return rec, nil
}

type fakeCache struct {
	invalidated []int64
}

func (c *fakeCache) Get(context.Context, int64) (domain.MarketSnapshot, error) {
	return domain.MarketSnapshot{}, domain.ErrNotFound
}

func (c *fakeCache) Set(context.Context, domain.MarketSnapshot, time.Duration) error { return nil }

func (c *fakeCache) Invalidate(_ context.Context, marketID int64) error {
	c.invalidated = append(c.invalidated, marketID)
	return nil
}

type fakeBus struct {
	published map[string][][]byte
}

func newFakeBus() *fakeBus { return &fakeBus{published: make(map[string][][]byte)} }

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string, func([]byte)) (func(), error) {
	return func() {}, nil
}

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, nil
}

type fakeAudit struct {
	entries []domain.AuditEntry
}

func (a *fakeAudit) Record(_ context.Context, e domain.AuditEntry) error {
	a.entries = append(a.entries, e)
	return nil
}

func (a *fakeAudit) List(context.Context, string, domain.ListOpts) ([]domain.AuditEntry, error) {
	return a.entries, nil
}

type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}
