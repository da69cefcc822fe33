package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"licensegate/internal/config"
	apierrors "licensegate/internal/errors"
	"licensegate/internal/gate"
	"licensegate/internal/infrastructure"
	"licensegate/internal/license"
	customMiddleware "licensegate/internal/middleware"
	"licensegate/internal/services"
	handlers "licensegate/internal/transport/http"
	ws "licensegate/internal/websocket"
	"licensegate/pkg/contracts"
)

// AppName identifies the service in logs
const AppName = "licensegate"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Verifier      *license.Verifier
	Gate          *gate.Gate
	Sessions      *gate.Store
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer
	ErrorHandler  *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	License services.LicenseService
	Trim    *services.TrimService
	Health  *services.HealthService
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		app.Sessions.Stop()
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices builds the verifier, gates, hub and services
func (a *Application) initializeServices() error {
	licenseMetrics, err := license.InitializeMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize license metrics: %w", err)
	}

	var key []byte
	if a.Config.License.SecretHex != "" {
		key, err = license.ParseKey(a.Config.License.SecretHex)
		if err != nil {
			return fmt.Errorf("failed to parse license key: %w", err)
		}
	}

	verifier, err := license.NewVerifier(key,
		license.WithLogger(a.Logger),
		license.WithMetrics(licenseMetrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create license verifier: %w", err)
	}
	a.Verifier = verifier

	if verifier.UsesDefaultKey() {
		a.Logger.Warn("Using the built-in license key",
			slog.String("action", "set "+config.EnvPrefix+"_LICENSE_SECRET_HEX to use a deployment key"))
	}

	if a.Config.License.SelfTest {
		if err := verifier.SelfTest(); err != nil {
			return fmt.Errorf("license cipher self-test failed: %w", err)
		}
		a.Logger.Info("License cipher self-test passed")
	}

	gateOpts := []gate.Option{
		gate.WithLogger(a.Logger),
		gate.WithMetrics(licenseMetrics),
	}
	a.Gate = gate.New(verifier, gateOpts...)
	a.Sessions = gate.NewStore(verifier, a.Config.License.SessionTTL, a.Config.License.MaxSessions, gateOpts...)

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		a.Sessions.Stop()
		return fmt.Errorf("failed to initialize WebSocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Gate, wsMetrics, a.Logger)
	a.Gate.OnTransition(a.WebSocketHub.OnGateEvent)

	licenseService := services.NewLicenseService(a.Gate, a.Sessions, verifier.UsesDefaultKey(), a.Logger)
	a.Services = &ServiceContainer{
		License: licenseService,
		Trim:    services.NewTrimService(a.Gate, a.Logger),
		Health:  services.NewHealthService(verifier, licenseService, a.WebSocketHub, a.Logger),
	}

	return nil
}

// setupRouter configures the HTTP router. Middleware order:
// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit → Timeout
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// Set on the root so every mounted router inherits them
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// The WebSocket route must not see response-wrapping middleware
	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/api", func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "application/json"))

			health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
			r.Mount("/health", health.Routes())
			r.Get("/version", health.Version)

			r.Mount("/license", handlers.NewLicenseHandler(a.Services.License, validation, a.ErrorHandler, a.Logger).Routes())
			r.Mount("/trim", handlers.NewTrimHandler(a.Services.Trim, validation, a.ErrorHandler, a.Logger).Routes())
			r.Mount("/sessions", handlers.NewSessionHandler(a.Services.License, a.Services.Trim, validation, a.ErrorHandler, a.Logger).Routes())
		})
	})

	a.Router = r
	return nil
}

// getCORSConfig returns the CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "traceparent"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP and the WebSocket hub until ctx is cancelled or the server
// fails, then shuts everything down
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(gctx, "Shutting down")
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown drains the HTTP server and releases background resources
func (a *Application) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}

	a.Sessions.Stop()

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "Shutdown complete")
	return nil
}
