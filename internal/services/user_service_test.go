package services

import (
	"context"
	"errors"
	"testing"

	"finanote/internal/core"
	"finanote/internal/memory"
)

func TestRegister(t *testing.T) {
	svc := NewUserService(memory.New())
	ctx := context.Background()

	u, err := svc.Register(ctx, "Grace", "grace@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.MonthlyBudget != core.DefaultMonthlyBudget {
		t.Fatalf("unexpected budget %v", u.MonthlyBudget)
	}

	tests := []struct {
		name, user, email, field string
	}{
		{"blank name", " ", "x@example.com", "name"},
		{"bad email", "X", "not-an-email", "email"},
		{"display name form", "X", "X <x@example.com>", "email"},
		{"email taken", "Grace Again", "grace@example.com", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.user, tt.email)
			var ve *core.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
			if tt.name == "email taken" && !errors.Is(err, core.ErrEmailTaken) {
				t.Fatalf("expected ErrEmailTaken, got %v", err)
			}
		})
	}
}

func TestBudget(t *testing.T) {
	store := memory.New()
	svc := NewUserService(store)
	ctx := context.Background()
	u, _ := store.CreateUser(ctx, "Hal", "hal@example.com")

	b, err := svc.Budget(ctx, u.ID)
	if err != nil || b != core.DefaultMonthlyBudget {
		t.Fatalf("budget = %v err=%v", b, err)
	}

	if _, err := svc.UpdateBudget(ctx, u.ID, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	updated, err := svc.UpdateBudget(ctx, u.ID, core.Money{})
	if err != nil || updated.MonthlyBudget.Cents != 0 {
		t.Fatalf("zero budget should be accepted: %+v err=%v", updated, err)
	}

	if _, err := svc.Profile(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
