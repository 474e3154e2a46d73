package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// Session is an issued bearer token with its owner.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthService handles registration, login and opaque session tokens.
// Wallet login auto-registers unknown principals so a connected wallet
// is all a user needs.
type AuthService struct {
	users      domain.UserStore
	sessions   domain.SessionStore
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users domain.UserStore,
	sessions domain.SessionStore,
	sessionTTL time.Duration,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a password-backed account and opens a session.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, domain.Validationf("username", "must not be empty")
	}
	if len(password) < 8 {
		return Session{}, domain.Validationf("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("auth_service: hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return Session{}, domain.ErrAlreadyExists
		}
		return Session{}, fmt.Errorf("auth_service: create user: %w", err)
	}

	s.logger.InfoContext(ctx, "auth_service: user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)
	return s.openSession(ctx, user)
}

// Login verifies a username and password and opens a session. A wrong
// username and a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, domain.ErrUnauthorized
		}
		return Session{}, fmt.Errorf("auth_service: login: %w", err)
	}
	if user.PasswordHash == "" {
		return Session{}, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, domain.ErrUnauthorized
	}
	return s.openSession(ctx, user)
}

// WalletLogin opens a session for a wallet principal, creating the
// account on first sight.
func (s *AuthService) WalletLogin(ctx context.Context, principal string) (Session, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return Session{}, domain.Validationf("walletAddress", "must not be empty")
	}

	user, err := s.users.GetByWallet(ctx, principal)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		user = domain.User{
			ID:            uuid.NewString(),
			Username:      walletUsername(principal),
			WalletAddress: principal,
			CreatedAt:     time.Now().UTC(),
		}
		if createErr := s.users.Create(ctx, user); createErr != nil {
			// A concurrent first login may have won the race.
			if errors.Is(createErr, domain.ErrAlreadyExists) {
				user, err = s.users.GetByWallet(ctx, principal)
				if err != nil {
					return Session{}, fmt.Errorf("auth_service: wallet login: %w", err)
				}
			} else {
				return Session{}, fmt.Errorf("auth_service: register wallet: %w", createErr)
			}
		} else {
			s.logger.InfoContext(ctx, "auth_service: wallet auto-registered",
				slog.String("user_id", user.ID),
				slog.String("principal", principal),
			)
		}
	default:
		return Session{}, fmt.Errorf("auth_service: wallet login: %w", err)
	}

	return s.openSession(ctx, user)
}

// AttachWallet binds a wallet principal to an existing account.
func (s *AuthService) AttachWallet(ctx context.Context, userID, principal string) error {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return domain.Validationf("walletAddress", "must not be empty")
	}
	if err := s.users.AttachWallet(ctx, userID, principal); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("auth_service: attach wallet: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	userID, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, fmt.Errorf("auth_service: authenticate: %w", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, fmt.Errorf("auth_service: load session user: %w", err)
	}
	return user, nil
}

// Logout drops the session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("auth_service: logout: %w", err)
	}
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user domain.User) (Session, error) {
	token := uuid.NewString()
	if err := s.sessions.Create(ctx, token, user.ID, s.sessionTTL); err != nil {
		return Session{}, fmt.Errorf("auth_service: open session: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

// walletUsername derives a readable default handle from the principal.
func walletUsername(principal string) string {
	if len(principal) <= 10 {
		return principal
	}
	return principal[:6] + "..." + principal[len(principal)-4:]
}
