// Package daemon assembles and runs the relay's HTTP server.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/samber/oops"

	"github.com/eventrelay/eventrelay/internal/auth"
	"github.com/eventrelay/eventrelay/internal/clients"
	"github.com/eventrelay/eventrelay/internal/config"
	"github.com/eventrelay/eventrelay/internal/handlers"
	"github.com/eventrelay/eventrelay/internal/inbox"
	"github.com/eventrelay/eventrelay/internal/log"
	"github.com/eventrelay/eventrelay/internal/metrics"
	"github.com/eventrelay/eventrelay/internal/secrets"
	"github.com/eventrelay/eventrelay/internal/store"
	"github.com/eventrelay/eventrelay/internal/store/dynamo"
	"github.com/eventrelay/eventrelay/internal/store/memory"
	"github.com/eventrelay/eventrelay/internal/telemetry"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 10 * time.Second
	WriteTimeout      = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	ServerLogDomain   = "server daemon"
)

var ErrNoSigningKey = errors.New("token signing key is not configured")

type Server struct {
	cfg    *config.Config
	server *http.Server
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	eventStore, err := newEventStore(ctx, cfg.Store)
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "creating event store")
	}

	values, err := resolveSecrets(ctx, cfg.Secrets)
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "resolving secrets")
	}

	if values.TokenSigningKey == "" {
		return nil, oops.In(ServerLogDomain).Wrap(ErrNoSigningKey)
	}

	issuer := auth.NewIssuer(
		values.TokenSigningKey,
		cfg.Auth.Username,
		values.APIKey,
		auth.WithTTL(cfg.Auth.TokenTTL),
	)

	aggregator := metrics.NewAggregator(
		eventStore,
		cfg.Metrics.CacheTTL,
		metrics.WithMaxScan(cfg.Metrics.MaxScan),
	)

	handler := handlers.New(
		eventStore,
		inbox.New(eventStore),
		aggregator,
		issuer,
		values.WebhookSecret,
	)

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           newMux(handler, issuer, telemetry.NewHTTPMetrics()),
			ReadHeaderTimeout: ReadHeaderTimeout,
			ReadTimeout:       ReadTimeout,
			WriteTimeout:      WriteTimeout,
			IdleTimeout:       IdleTimeout,
		},
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server encountered an error", err)

			_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}
	}()

	return nil
}

func (s *Server) Close(ctx context.Context) error {
	shutdownCtx, shutdownRelease := context.WithTimeout(ctx, s.cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		return oops.In(ServerLogDomain).
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	log.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}

func newEventStore(ctx context.Context, cfg config.Store) (store.EventStore, error) {
	if cfg.Backend == config.StoreBackendMemory {
		return memory.New(), nil
	}

	client, err := clients.NewDynamoDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return dynamo.New(client, cfg.TableName), nil
}

func resolveSecrets(ctx context.Context, cfg config.Secrets) (*secrets.Values, error) {
	if cfg.Inline != nil {
		return secrets.FromInline(cfg.Inline), nil
	}

	client, err := clients.NewSecretsManager(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	return secrets.NewCache(client).Get(ctx, cfg.SecretID)
}
