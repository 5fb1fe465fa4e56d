package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sprintdeck/sprintdeck-go/config"
	"github.com/sprintdeck/sprintdeck-go/internal/adapters/httpapi"
	"github.com/sprintdeck/sprintdeck-go/internal/ports"
	"github.com/sprintdeck/sprintdeck-go/internal/service"
)

// NewSessionService wires the full session stack from config: token store,
// HTTP auth client, metrics sink, and the state machine itself.
func NewSessionService(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, nav ports.Navigator) (*service.SessionService, error) {
	tokens, err := NewTokenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}

	api, err := httpapi.NewClient(httpapi.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  tokens,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("auth client: %w", err)
	}

	sink, err := NewMetricsSink(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	opts := service.SessionServiceOptions{
		API:             api,
		Tokens:          tokens,
		Navigator:       nav,
		InitDeadline:    cfg.Session.InitDeadline,
		MonitorInterval: cfg.Session.MonitorInterval,
		Logger:          logger,
	}
	if sink != nil {
		opts.Metrics = sink
	}

	return service.NewSessionService(opts)
}
