package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/testbed-portal/discovery-finder/pkg/common"
	"github.com/testbed-portal/discovery-finder/pkg/discovery"
	"github.com/testbed-portal/discovery-finder/pkg/logger"
	"github.com/testbed-portal/discovery-finder/pkg/messaging"
	"github.com/testbed-portal/discovery-finder/pkg/server"
	"github.com/testbed-portal/discovery-finder/pkg/store"
)

var apiUrl = os.Getenv("API_URL")
var redisUrl = os.Getenv("REDIS_URL")
var redisPassword = os.Getenv("REDIS_PASSWORD")
var rabbitUrl = os.Getenv("RABBIT_URL")
var prefix = envOr("PREFIX", "discovery")
var listenAddress = envOr("LISTEN_ADDRESS", ":8080")
var dataDir = envOr("DATA_DIR", "data")

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func main() {
	if err := logger.Init(logger.Config{Level: os.Getenv("LOG_LEVEL")}); err != nil {
		logger.Warn().Err(err).Msg("invalid LOG_LEVEL, using info")
	}
	if apiUrl == "" {
		logger.Fatal().Msg("no API_URL provided")
	}

	var snapshotStore store.Store
	var hooks []common.ShutdownHook
	if redisUrl != "" {
		rs := store.NewRedisStore(redisUrl, redisPassword, 0, prefix, envSeconds("SNAPSHOT_TTL", 24*time.Hour))
		snapshotStore = rs
		defer rs.Close()
		logger.Info().Str("addr", redisUrl).Msg("snapshots stored in redis")
	} else {
		snapshotStore = store.NewDiskStore(dataDir)
		logger.Info().Str("dir", dataDir).Msg("snapshots stored on disk")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := discovery.NewClient(apiUrl)
	ws := server.NewWebServer(ctx, client, snapshotStore, nil)
	hooks = append(hooks, ws.SaveSnapshot)

	if rabbitUrl != "" {
		transport := &messaging.RabbitTransport{
			Url:    rabbitUrl,
			Prefix: prefix,
			OnRefresh: func(ctx context.Context) error {
				_, err := ws.Refresh(ctx)
				return err
			},
		}
		if err := transport.Connect(); err != nil {
			logger.Error().Err(err).Msg("running without rabbitmq")
		} else {
			ws.Notifier = transport
			hooks = append(hooks, func(ctx context.Context) error { return transport.Close() })
		}
	}

	if err := ws.Restore(ctx); err != nil && !errors.Is(err, store.ErrNoSnapshot) {
		logger.Error().Err(err).Msg("could not restore snapshot")
	}
	go func() {
		if _, err := ws.Refresh(ctx); err != nil {
			logger.Error().Err(err).Msg("initial refresh failed")
		}
	}()

	if interval := envSeconds("REFRESH_INTERVAL", 0); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		go func() {
			for range ticker.C {
				if _, err := ws.Refresh(ctx); err != nil {
					logger.Error().Err(err).Msg("scheduled refresh failed")
				}
			}
		}()
	}
	hooks = append(hooks, func(context.Context) error { cancel(); return nil })

	timeouts := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       15 * time.Second,
		Write:      60 * time.Second,
		Idle:       120 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       5 * time.Second,
	})
	srv := common.NewServerWithTimeouts(listenAddress, ws.Handler(), timeouts)
	common.RunServerWithShutdown(srv, "discovery finder", timeouts.Shutdown, timeouts.Hook, hooks...)
}
