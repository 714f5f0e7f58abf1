package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"kitchenrent/pkg/auth"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/config"
	"kitchenrent/pkg/contracts"
	"kitchenrent/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Routes groups handlers by the middleware chain they sit behind. Public
// routes get recovery, logging and a body limit only; Protected routes get
// the full stack.
type Routes struct {
	Public    []contracts.Handler
	Protected []contracts.Handler
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ActorRateLimiter
	publicRouter     *httprouter.Router
	publicHandler    http.Handler
	appHTTPHandler   http.Handler
	onShutdown       []func()
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

func (a *Application) SetApp(routes Routes) {
	a.setPublicHandler(routes.Public)
	a.setAppHandler(routes.Protected)
	a.setAppServer()
}

// OnShutdown registers cleanup run after the server stops accepting
// requests, in registration order.
func (a *Application) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *Application) setPublicHandler(handlers []contracts.Handler) {
	publicRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(publicRouter)
	}
	a.publicRouter = publicRouter

	var publicHTTPHandler http.Handler = publicRouter
	publicHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(publicHTTPHandler)
	publicHTTPHandler = middleware.RequestLogging(a.cfg.Log)(publicHTTPHandler)
	publicHTTPHandler = middleware.Recovery(a.cfg.Log)(publicHTTPHandler)
	a.publicHandler = publicHTTPHandler
	a.cfg.Log.Info("Public endpoints configured with minimal middleware (Recovery + Logging + MaxRequestSize)")
}

func (a *Application) setAppHandler(handlers []contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(appRouter)
	}

	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotencyStore = cache.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.Log)
		a.cfg.Log.Info("Idempotency keys stored in Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
		a.cfg.Log.Warn("Idempotency keys stored in memory, replays are per replica")
	}
	a.rateLimiter = middleware.NewActorRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		a.cfg.RateLimitBurst,
		a.cfg.Log,
	)

	var appHTTPHandler http.Handler = appRouter
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore, a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.RateLimit(a.rateLimiter)(appHTTPHandler)
	appHTTPHandler = a.authentication()(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.appHTTPHandler = appHTTPHandler
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

// authentication verifies bearer tokens when a signing secret is set.
// Without one the service trusts identity headers set by the gateway in
// front of it.
func (a *Application) authentication() func(http.Handler) http.Handler {
	if a.cfg.JWTSecret != "" {
		a.cfg.Log.Info("JWT authentication enabled")
		return middleware.Authenticate(auth.NewTokenManager(a.cfg.JWTSecret), a.cfg.Log)
	}
	a.cfg.Log.Warn("JWT secret not configured, trusting gateway identity headers",
		"id_header", middleware.ActorIDHeader,
		"role_header", middleware.ActorRoleHeader,
	)
	return middleware.TrustedHeaders(a.cfg.Log)
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      dispatch(a.publicRouter, a.publicHandler, a.appHTTPHandler),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler exposes the assembled request pipeline.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	for _, fn := range a.onShutdown {
		fn()
	}
	if a.cfg.Client != nil {
		a.cfg.GracefulShutdown()
	}

	a.cfg.Log.Info("Server stopped gracefully")
}

// dispatch sends requests matching a public route to the public chain and
// everything else to the protected one.
func dispatch(public *httprouter.Router, publicHandler, appHandler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handle, _, _ := public.Lookup(r.Method, r.URL.Path); handle != nil {
			publicHandler.ServeHTTP(w, r)
			return
		}
		appHandler.ServeHTTP(w, r)
	})
}
