package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

type memUserStore struct {
	users map[string]domain.User
}

func newMemUserStore() *memUserStore { return &memUserStore{users: make(map[string]domain.User)} }

func (s *memUserStore) Create(_ context.Context, u domain.User) error {
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return domain.ErrAlreadyExists
		}
		if u.WalletAddress != "" && existing.WalletAddress == u.WalletAddress {
			return domain.ErrAlreadyExists
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (domain.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *memUserStore) GetByWallet(_ context.Context, address string) (domain.User, error) {
	for _, u := range s.users {
		if u.WalletAddress == address {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *memUserStore) UpdateBalance(_ context.Context, id string, delta float64) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Balance += delta
	s.users[id] = u
	return nil
}

func (s *memUserStore) AttachWallet(_ context.Context, id, address string) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.WalletAddress = address
	s.users[id] = u
	return nil
}

type memSessionStore struct {
	sessions map[string]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]string)}
}

func (s *memSessionStore) Create(_ context.Context, token, userID string, _ time.Duration) error {
	s.sessions[token] = userID
	return nil
}

func (s *memSessionStore) Get(_ context.Context, token string) (string, error) {
	userID, ok := s.sessions[token]
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return userID, nil
}

func (s *memSessionStore) Delete(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func newTestAuth() (*AuthService, *memUserStore, *memSessionStore) {
	users := newMemUserStore()
	sessions := newMemSessionStore()
	auth := NewAuthService(users, sessions, time.Hour, 4, testLogger())
	return auth, users, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _, _ := newTestAuth()
	ctx := context.Background()

	sess, err := auth.Register(ctx, "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice", sess.User.Username)

	got, err := auth.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.ID)

	login, err := auth.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = auth.Login(ctx, "alice", "wrong password")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	auth, _, _ := newTestAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "", "correct horse")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "alice", "", "battery staple")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	auth, _, _ := newTestAuth()

	_, err := auth.Register(context.Background(), "alice", "", "short")

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "password", vErr.Field)
}

func TestWalletLoginAutoRegisters(t *testing.T) {
	auth, users, _ := newTestAuth()
	ctx := context.Background()
	principal := "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP"

	sess, err := auth.WalletLogin(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, principal, sess.User.WalletAddress)
	assert.Len(t, users.users, 1)

	// Second login reuses the account.
	again, err := auth.WalletLogin(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)
	assert.Len(t, users.users, 1)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	auth, _, _ := newTestAuth()
	ctx := context.Background()

	sess, err := auth.Register(ctx, "alice", "", "correct horse")
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, sess.Token))

	_, err = auth.Authenticate(ctx, sess.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestBuildOrderBookAggregatesLevels(t *testing.T) {
	trades := []domain.Trade{
		{Side: domain.TradeBuy, Price: 0.401, Amount: 10},
		{Side: domain.TradeBuy, Price: 0.399, Amount: 5},
		{Side: domain.TradeBuy, Price: 0.55, Amount: 2},
		{Side: domain.TradeSell, Price: 0.60, Amount: 7},
		{Side: domain.TradeSell, Price: 0.58, Amount: 3},
	}

	book := buildOrderBook(trades)

	// 0.401 and 0.399 collapse into the 0.40 cent bucket.
	require.Len(t, book.Buys, 2)
	assert.InDelta(t, 0.55, book.Buys[0].Price, 1e-9)
	assert.InDelta(t, 0.40, book.Buys[1].Price, 1e-9)
	assert.InDelta(t, 15, book.Buys[1].Amount, 1e-9)

	require.Len(t, book.Sells, 2)
	assert.InDelta(t, 0.58, book.Sells[0].Price, 1e-9)
	assert.InDelta(t, 0.60, book.Sells[1].Price, 1e-9)
}

func TestWalletUsernameShortensPrincipal(t *testing.T) {
	assert.Equal(t, "ST1PSH...9XZP", walletUsername("ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP"))
	assert.Equal(t, "short", walletUsername("short"))
}
