package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mir00r/lb-dashboard/internal/authority"
	"github.com/mir00r/lb-dashboard/internal/config"
	"github.com/mir00r/lb-dashboard/internal/handler"
	"github.com/mir00r/lb-dashboard/internal/middleware"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "", "Configuration file (defaults to $CONFIG_FILE or dashboard.yaml)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadConfigFrom(*configFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The authority has no terminal UI, so file output is only kept when
	// asked for explicitly through the environment
	output := cfg.Logging.Output
	if os.Getenv("LBD_LOG_OUTPUT") == "" {
		output = "stdout"
	}
	base, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := base.AuthorityLogger()

	ac := cfg.Authority
	seed := ac.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	pool := authority.NewPool(ac.Backends, ac.FailureRate, rng)
	router := authority.NewAdaptiveRouter(pool, rng, ac.MaxDecisions)
	traffic := authority.NewTrafficGenerator(pool, router, authority.TrafficOptions{
		RPS:   ac.TrafficRPS,
		Burst: ac.TrafficBurst,
	}, log)
	rateLimiter := middleware.NewRateLimiter(ac.ClientRPS, ac.ClientBurst, ac.TrustForwardedFor, log)

	health := handler.NewHealthHandler(version)
	health.Register("router", router)
	health.Register("traffic", traffic)
	health.Register("rate_limiter", rateLimiter)

	opts := handler.RouterOptions{
		Feeds:  handler.NewFeedHandler(pool, router),
		Health: health,
		Stream: handler.NewStreamHandler(router, cfg.Feeds.Interval, log),
	}
	if jwtAuth := middleware.NewJWTAuthMiddleware(ac.JWTSecret, log); jwtAuth != nil {
		opts.Protect = jwtAuth.JWTAuth()
		log.Info("Feed authentication enabled")
	}

	finalHandler := middleware.Chain(handler.NewRouter(opts),
		middleware.RecoveryMiddleware(log),
		middleware.LoggingMiddleware(log),
		middleware.CORSMiddleware(),
		rateLimiter.RateLimitMiddleware(),
	)

	port := getPort(ac.Port)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      finalHandler,
		ReadTimeout:  ac.ReadTimeout,
		WriteTimeout: ac.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		traffic.Run(ctx)
	}()

	go func() {
		log.WithFields(map[string]interface{}{
			"version":  version,
			"port":     port,
			"backends": ac.Backends,
			"seed":     seed,
			"process":  getProcessInfo(),
		}).Info("Starting authority HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Traffic generator did not stop in time")
	}

	log.Info("Authority stopped gracefully")
}
