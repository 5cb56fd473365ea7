// Package app assembles the tool server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mcptools "github.com/thadeucbr/mcp-tools"
	"github.com/thadeucbr/mcp-tools/config"
	"github.com/thadeucbr/mcp-tools/meal"
	"github.com/thadeucbr/mcp-tools/media"
	"github.com/thadeucbr/mcp-tools/middleware"
	"github.com/thadeucbr/mcp-tools/server"
	"github.com/thadeucbr/mcp-tools/transport"
	"github.com/thadeucbr/mcp-tools/whatsapp"
)

// Version is reported to clients during initialize.
const Version = "1.0.0"

const instructions = "Use meal_register to log meals and read today's totals. " +
	"Media and WhatsApp tools are listed only when their providers are configured."

// Option customises New.
type Option func(*options)

type options struct {
	store      meal.Store
	httpClient *http.Client
}

// WithStore replaces the Mongo-backed store.
func WithStore(s meal.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithHTTPClient sets the client used for OpenAI and the WhatsApp gateway.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// App owns the server, its store and its collaborators.
type App struct {
	cfg    config.Config
	logger middleware.Logger
	server *mcptools.Server
	store  meal.Store
}

// New connects the store and registers every configured tool.
func New(ctx context.Context, cfg config.Config, logger middleware.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if logger == nil {
		logger = middleware.NopLogger{}
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = meal.ConnectMongo(ctx, meal.MongoConfig{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("mongo connected", middleware.F("database", cfg.Mongo.Database), middleware.F("collection", cfg.Mongo.Collection))
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		server: mcptools.NewServer(
			mcptools.ServerInfo{Name: cfg.Server.Name, Version: Version},
			server.WithInstructions(instructions),
		),
	}

	if err := a.register(loc, o.httpClient); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) register(loc *time.Location, httpClient *http.Client) error {
	ledger := meal.NewLedger(a.store, meal.WithLocation(loc), meal.WithLogger(a.logger))
	if err := meal.RegisterTools(a.server, ledger); err != nil {
		return err
	}

	var sender media.Sender
	if wa := a.cfg.WhatsApp; wa.BaseURL != "" {
		client, err := whatsapp.New(whatsapp.Config{
			BaseURL:       wa.BaseURL,
			APIKey:        wa.APIKey,
			Session:       wa.Session,
			RatePerSecond: wa.RatePerSecond,
			Timeout:       wa.Timeout,
			HTTPClient:    httpClient,
		})
		if err != nil {
			return err
		}
		if err := whatsapp.RegisterTools(a.server, client); err != nil {
			return err
		}
		sender = client
	} else {
		a.logger.Info("whatsapp tools disabled", middleware.F("reason", "no gateway URL"))
	}

	if ai := a.cfg.OpenAI; ai.APIKey != "" {
		opts := []media.Option{media.WithLogger(a.logger)}
		if sender != nil {
			opts = append(opts, media.WithSender(sender))
		}
		svc := media.New(media.NewClient(ai.APIKey, ai.BaseURL, httpClient), media.Config{
			SpeechModel:   ai.SpeechModel,
			Voice:         ai.Voice,
			ImageModel:    ai.ImageModel,
			ResearchModel: ai.ResearchModel,
			OutputDir:     ai.OutputDir,
		}, opts...)
		if err := media.RegisterTools(a.server, svc); err != nil {
			return err
		}
	} else {
		a.logger.Info("media tools disabled", middleware.F("reason", "no OpenAI API key"))
	}
	return nil
}

// Server returns the tool registry.
func (a *App) Server() *mcptools.Server {
	return a.server
}

// Handler returns a request handler with the production middleware stack.
func (a *App) Handler() *mcptools.Handler {
	return mcptools.NewHandler(a.server, a.serveOptions()...)
}

func (a *App) serveOptions() []mcptools.ServeOption {
	stack := middleware.DefaultStack(a.logger, middleware.StackConfig{
		Timeout:      a.cfg.Server.RequestTimeout,
		RatePerSec:   a.cfg.Server.RatePerSecond,
		Burst:        a.cfg.Server.RateBurst,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
		OTel:         []middleware.OTelOption{middleware.WithOTelServiceName(a.cfg.Server.Name)},
	})
	return []mcptools.ServeOption{
		mcptools.WithMiddleware(stack...),
		mcptools.WithLogger(a.logger),
	}
}

// Serve runs the configured transport until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	srv := a.cfg.Server
	a.logger.Info("serving", middleware.F("transport", srv.Transport), middleware.F("addr", srv.Addr))

	switch srv.Transport {
	case config.TransportStdio:
		return mcptools.ServeStdio(ctx, a.server, a.serveOptions()...)
	case config.TransportHTTP:
		return mcptools.ServeHTTP(ctx, a.server, srv.Addr, []transport.HTTPOption{
			transport.WithReadTimeout(srv.ReadTimeout),
			transport.WithWriteTimeout(srv.WriteTimeout),
			transport.WithShutdownTimeout(srv.ShutdownTimeout),
			transport.WithMaxBodyBytes(srv.MaxBodyBytes),
		}, a.serveOptions()...)
	case config.TransportWebSocket:
		return mcptools.ServeWebSocket(ctx, a.server, srv.Addr, []transport.WebSocketOption{
			transport.WithWebSocketReadTimeout(srv.ReadTimeout),
			transport.WithWebSocketWriteTimeout(srv.WriteTimeout),
		}, a.serveOptions()...)
	default:
		return fmt.Errorf("unknown transport %q", srv.Transport)
	}
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	if err := a.store.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
