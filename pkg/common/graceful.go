package common

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
)

// ShutdownHook runs after a termination signal and before the HTTP server
// shuts down. Errors are logged, shutdown continues regardless.
type ShutdownHook func(ctx context.Context) error

// RunServerWithShutdown serves until SIGINT or SIGTERM, then runs the hooks
// in order, each with its own hookTimeout inside the overall
// shutdownTimeout, and finally shuts the server down gracefully.
func RunServerWithShutdown(server *http.Server, name string, shutdownTimeout, hookTimeout time.Duration, hooks ...ShutdownHook) {
	if hookTimeout <= 0 {
		hookTimeout = 5 * time.Second
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msgf("starting %s", name)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msgf("%s listen error", name)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msgf("shutdown signal received for %s", name)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	runHooks(ctx, hookTimeout, hooks...)

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msgf("%s shutdown complete", name)
	}
}

func runHooks(ctx context.Context, hookTimeout time.Duration, hooks ...ShutdownHook) {
	for i, h := range hooks {
		if h == nil {
			continue
		}
		hCtx, hCancel := context.WithTimeout(ctx, hookTimeout)
		if err := h(hCtx); err != nil {
			logger.Error().Int("hook", i).Err(err).Msg("shutdown hook failed")
		}
		if errors.Is(hCtx.Err(), context.DeadlineExceeded) {
			logger.Warn().Int("hook", i).Msg("shutdown hook timed out")
		}
		hCancel()
	}
}

// TimeoutConfig holds server and shutdown timeouts.
type TimeoutConfig struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
	Hook       time.Duration
}

// LoadTimeoutConfig overrides defaults from environment variables holding
// whole seconds: READ_HEADER_TIMEOUT, READ_TIMEOUT, WRITE_TIMEOUT,
// IDLE_TIMEOUT, SHUTDOWN_TIMEOUT and HOOK_TIMEOUT. Unparsable or
// non-positive values keep the default.
func LoadTimeoutConfig(defaults TimeoutConfig) TimeoutConfig {
	apply := func(curr *time.Duration, env string) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*curr = time.Duration(n) * time.Second
			}
		}
	}
	apply(&defaults.ReadHeader, "READ_HEADER_TIMEOUT")
	apply(&defaults.Read, "READ_TIMEOUT")
	apply(&defaults.Write, "WRITE_TIMEOUT")
	apply(&defaults.Idle, "IDLE_TIMEOUT")
	apply(&defaults.Shutdown, "SHUTDOWN_TIMEOUT")
	apply(&defaults.Hook, "HOOK_TIMEOUT")
	return defaults
}

func NewServerWithTimeouts(addr string, handler http.Handler, cfg TimeoutConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeader,
		ReadTimeout:       cfg.Read,
		WriteTimeout:      cfg.Write,
		IdleTimeout:       cfg.Idle,
	}
}
