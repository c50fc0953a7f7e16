package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"finanote/internal/core"
	"finanote/internal/ports"
)

// UserService exposes the budget-relevant part of user accounts.
type UserService struct {
	users ports.UserStore
}

func NewUserService(users ports.UserStore) *UserService {
	return &UserService{users: users}
}

// Register provisions an account with the default monthly budget.
func (s *UserService) Register(ctx context.Context, name, email string) (core.User, error) {
	if strings.TrimSpace(name) == "" {
		return core.User{}, core.NewValidationError("name", core.ErrEmptyName)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return core.User{}, core.NewValidationError("email", core.ErrInvalidEmail)
	}
	u, err := s.users.CreateUser(ctx, name, addr.Address)
	if errors.Is(err, core.ErrEmailTaken) {
		return core.User{}, core.NewValidationError("email", err)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (core.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("user %d: %w", userID, err)
	}
	return u, nil
}

// Budget returns the monthly budget of userID.
func (s *UserService) Budget(ctx context.Context, userID int64) (core.Money, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return core.Money{}, err
	}
	return u.MonthlyBudget, nil
}

// UpdateBudget sets a new non-negative monthly budget.
func (s *UserService) UpdateBudget(ctx context.Context, userID int64, budget core.Money) (core.User, error) {
	if budget.Cents < 0 {
		return core.User{}, core.NewValidationError("monthlyBudget", core.ErrInvalidBudget)
	}
	u, err := s.users.UpdateBudget(ctx, userID, budget)
	if err != nil {
		return core.User{}, fmt.Errorf("update budget of user %d: %w", userID, err)
	}
	slog.InfoContext(ctx, "Monthly budget updated",
		"user_id", userID,
		"budget_cents", budget.Cents)
	return u, nil
}
