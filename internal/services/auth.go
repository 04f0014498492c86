package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/bolt-backend/internal/ledger"
	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/store"
	"github.com/AnshRaj112/bolt-backend/pkg/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationErrors collects per-field problems from a signup or login body.
type ValidationErrors []*utils.ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Session is the result of a successful signup or login.
type Session struct {
	Account   *models.Account
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	store       store.AccountStore
	tokens      *TokenService
	progression *ProgressionService
	log         *logger.Logger
}

func NewAuthService(st store.AccountStore, tokens *TokenService, progression *ProgressionService, log *logger.Logger) *AuthService {
	return &AuthService{store: st, tokens: tokens, progression: progression, log: log}
}

func (s *AuthService) Tokens() *TokenService { return s.tokens }

// Signup creates an account with the welcome balance and opens a session.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = utils.NormalizeEmail(email)

	var verrs ValidationErrors
	for _, err := range []error{
		ValidateUsername(username),
		utils.ValidateEmail(email),
		utils.ValidatePassword(password),
	} {
		var ve *utils.ValidationError
		if errors.As(err, &ve) {
			verrs = append(verrs, ve)
		}
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	acct := models.NewAccount(username, email, hash, now)
	ledger.RecordLogin(acct, now)
	if err := s.store.Create(ctx, acct); err != nil {
		return nil, err
	}
	s.log.Info("account created", "accountId", acct.ID.Hex(), "username", acct.Username)

	if s.progression != nil && s.progression.board != nil {
		if err := s.progression.board.Update(ctx, acct); err != nil {
			s.log.Warn("leaderboard update failed", "accountId", acct.ID.Hex(), "error", err)
		}
	}
	return s.open(acct)
}

// ValidateUsername applies the format rule, then the reserved-name rule.
// Signup and profile renames both go through it.
func ValidateUsername(username string) error {
	if err := utils.ValidateUsername(username); err != nil {
		return err
	}
	return CheckReservedUsername(username)
}

// Login checks credentials, records the login for the streak and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = utils.NormalizeEmail(email)

	var verrs ValidationErrors
	if err := utils.ValidateEmail(email); err != nil {
		verrs = append(verrs, err.(*utils.ValidationError))
	}
	if password == "" {
		verrs = append(verrs, &utils.ValidationError{Field: "password", Message: "Password is required"})
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	acct, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := utils.VerifyPassword(password, acct.Password)
	if err != nil {
		s.log.Warn("stored password hash unreadable", "accountId", acct.ID.Hex(), "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	acct, err = s.progression.RecordLogin(ctx, acct.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.open(acct)
}

// Refresh issues a fresh token for an already authenticated account.
func (s *AuthService) Refresh(acct *models.Account) (*Session, error) {
	return s.open(acct)
}

func (s *AuthService) open(acct *models.Account) (*Session, error) {
	token, exp, err := s.tokens.Issue(acct.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Account: acct, Token: token, ExpiresAt: exp}, nil
}
