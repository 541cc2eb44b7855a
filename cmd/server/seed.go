package main

import (
	"errors"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// maybeSeed creates a development login on boot when SEED_EMAIL and
// SEED_PASSWORD are set. Never runs in prod; an existing account is fine.
func maybeSeed(ctx domain.Context, cfg config.Config, auth usecase.AuthService) {
	if !cfg.SeedEnabled() {
		return
	}
	u, err := auth.Register(ctx, cfg.SeedEmail, cfg.SeedName, cfg.SeedPassword)
	switch {
	case err == nil:
		slog.Info("seed account created", slog.String("email", u.Email))
	case errors.Is(err, domain.ErrConflict):
		slog.Info("seed account already exists", slog.String("email", cfg.SeedEmail))
	default:
		slog.Warn("seed account creation failed", slog.Any("error", err))
	}
}
