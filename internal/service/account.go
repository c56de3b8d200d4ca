package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

// ErrEmailTaken is returned when registering an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// AccountStore is the persistence the account service needs.
type AccountStore interface {
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	CreatePlayer(ctx context.Context, p *model.Player) (*model.Player, error)
	UpdatePlayer(ctx context.Context, p *model.Player) error
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	ListPlayersByParent(ctx context.Context, parentID string) ([]model.Player, error)

	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	NewToken(user *model.User) (string, time.Time, error)
}

// AccountService handles parents, their players, and their orders.
type AccountService struct {
	log    *slog.Logger
	store  AccountStore
	tokens TokenIssuer
	cost   int
}

// NewAccountService constructs an AccountService.
func NewAccountService(log *slog.Logger, store AccountStore, tokens TokenIssuer) *AccountService {
	return &AccountService{log: log, store: store, tokens: tokens, cost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a parent account with a bcrypt-hashed password.
func (s *AccountService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	const op = "service.Account.Register"
	log := s.log.With(slog.String("op", op))

	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.store.CreateUser(ctx, &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        strings.TrimSpace(req.Phone),
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login exchanges credentials for a signed access token.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	const op = "service.Account.Login"
	log := s.log.With(slog.String("op", op))

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("user not found")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
		log.Warn("invalid credentials", slog.String("user_id", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if !user.IsActive {
		log.Warn("inactive user attempted login", slog.String("user_id", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, exp, err := s.tokens.NewToken(user)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &model.TokenResponse{AccessToken: token, ExpiresAt: exp, User: user}, nil
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	return s.store.GetUser(ctx, p.UserID)
}

// ─── Players ──────────────────────────────────────────────────────────────────

func applyPlayerRequest(p *model.Player, req model.PlayerRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return err
	}

	p.FirstName = strings.TrimSpace(req.FirstName)
	p.LastName = strings.TrimSpace(req.LastName)
	p.BirthDate = birth
	p.Position = strings.TrimSpace(req.Position)
	p.JerseyNumber = req.JerseyNumber
	if req.Active != nil {
		p.Active = *req.Active
	}
	return nil
}

// CreatePlayer adds a player under the caller's account.
func (s *AccountService) CreatePlayer(ctx context.Context, p model.Principal, req model.PlayerRequest) (*model.Player, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	player := &model.Player{ParentID: p.UserID, Active: true}
	if err := applyPlayerRequest(player, req); err != nil {
		return nil, err
	}
	return s.store.CreatePlayer(ctx, player)
}

// UpdatePlayer edits a player. Only the parent or staff may do so.
func (s *AccountService) UpdatePlayer(ctx context.Context, p model.Principal, id string, req model.PlayerRequest) (*model.Player, error) {
	player, err := s.GetPlayer(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := applyPlayerRequest(player, req); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePlayer(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

// GetPlayer returns a player the caller may see.
func (s *AccountService) GetPlayer(ctx context.Context, p model.Principal, id string) (*model.Player, error) {
	player, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(player.ParentID) {
		return nil, ErrForbidden
	}
	return player, nil
}

// ListPlayers returns the caller's players.
func (s *AccountService) ListPlayers(ctx context.Context, p model.Principal) ([]model.Player, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	return s.store.ListPlayersByParent(ctx, p.UserID)
}

// ─── Orders ───────────────────────────────────────────────────────────────────

// ListOrders returns the caller's orders, or every order for staff.
func (s *AccountService) ListOrders(ctx context.Context, p model.Principal) ([]model.Order, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	userID := p.UserID
	if p.IsStaff {
		userID = ""
	}
	return s.store.ListOrders(ctx, userID)
}

// GetOrder returns an order the caller may see.
func (s *AccountService) GetOrder(ctx context.Context, p model.Principal, id string) (*model.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(order.UserID) {
		return nil, ErrForbidden
	}
	return order, nil
}
