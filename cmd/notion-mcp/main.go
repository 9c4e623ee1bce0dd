// notion-mcp exposes the Notion API as MCP tools over stdio.
//
// Configuration comes from the environment:
//
//	NOTION_TOKEN   - integration token (required)
//	LOG_LEVEL      - debug|info|warn|error (default: info)
//	LOG_PRETTY     - "1" for human-readable logs
//	REDIS_URL      - enables the response cache when set
//	CACHE_TTL      - cache entry lifetime (default: 60s)
//	METRICS_ADDR   - enables the Prometheus listener when set, e.g. ":9090"
//	THROTTLE_RPS   - enables the shared request throttle when set, e.g. "3"
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"

	"github.com/pbendersky/notion-mcp-gateway/pkg/cache"
	"github.com/pbendersky/notion-mcp-gateway/pkg/client"
	"github.com/pbendersky/notion-mcp-gateway/pkg/logging"
	"github.com/pbendersky/notion-mcp-gateway/pkg/metrics"
	"github.com/pbendersky/notion-mcp-gateway/pkg/notion"
	"github.com/pbendersky/notion-mcp-gateway/pkg/pagination"
	"github.com/pbendersky/notion-mcp-gateway/pkg/ratelimit"
	"github.com/pbendersky/notion-mcp-gateway/pkg/tools"
)

const serverVersion = "1.0.0"

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "1",
		Output: os.Stderr,
	})

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Configuration error")
	}

	notionClient, err := client.New(cfg.Client)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Notion client")
	}

	svc := notion.NewService(notionClient, cfg.Pages)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Starting metrics listener")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	s := server.NewMCPServer(
		"notion-mcp-gateway",
		serverVersion,
		server.WithToolCapabilities(true),
	)
	tools.Register(s, svc)

	logger.Info().Msg("Serving MCP on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Fatal().Err(err).Msg("Server error")
	}
}

// config holds everything loadConfig derives from the environment.
type config struct {
	Client      client.Config
	Pages       pagination.Config
	MetricsAddr string
}

// loadConfig builds the runtime configuration from environment variables.
func loadConfig() (config, error) {
	token := os.Getenv("NOTION_TOKEN")
	if token == "" {
		return config{}, fmt.Errorf("NOTION_TOKEN is required")
	}

	clientCfg := client.DefaultConfig(token)
	if base := os.Getenv("NOTION_BASE_URL"); base != "" {
		clientCfg.BaseURL = base
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		ttl := cache.DefaultTTL
		if raw := os.Getenv("CACHE_TTL"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
			}
			ttl = parsed
		}

		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return config{}, fmt.Errorf("connect to redis at %s: %w", redisURL, err)
		}
		clientCfg.Cache = cache.NewManager(redisClient, ttl)
	}

	if raw := os.Getenv("THROTTLE_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return config{}, fmt.Errorf("parse THROTTLE_RPS: %w", err)
		}
		throttleCfg := ratelimit.DefaultConfig()
		throttleCfg.RequestsPerSecond = rps
		clientCfg.Throttle = ratelimit.New(throttleCfg, logging.NewLogger("throttle"))
	}

	pages := pagination.DefaultConfig()
	if raw := os.Getenv("MAX_PAGES"); raw != "" {
		maxPages, err := strconv.Atoi(raw)
		if err != nil {
			return config{}, fmt.Errorf("parse MAX_PAGES: %w", err)
		}
		pages.MaxPages = maxPages
	}

	return config{
		Client:      clientCfg,
		Pages:       pages,
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
