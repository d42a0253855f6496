package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/relaylabs/agentrelay/agent/agents"
	contractx "github.com/relaylabs/agentrelay/agent/contract"
	"github.com/relaylabs/agentrelay/agent/history"
	"github.com/relaylabs/agentrelay/agent/moderation"
	orchestratorx "github.com/relaylabs/agentrelay/agent/orchestrator"
	promptx "github.com/relaylabs/agentrelay/agent/prompt"
	routerx "github.com/relaylabs/agentrelay/agent/router"
	"github.com/relaylabs/agentrelay/api"
	configx "github.com/relaylabs/agentrelay/pkg/config"
	llmclientx "github.com/relaylabs/agentrelay/pkg/llmclient"
	_ "github.com/relaylabs/agentrelay/pkg/logger/autoload"
	vectorstorex "github.com/relaylabs/agentrelay/pkg/vectorstore"
	websearchx "github.com/relaylabs/agentrelay/pkg/websearch"
)

type AppConfig struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"15s"`

	HistoryDriver string        `envconfig:"HISTORY_DRIVER" split_words:"true" default:"memory"`
	RedisURL      string        `envconfig:"REDIS_URL" split_words:"true"`
	RedisTTL      time.Duration `envconfig:"REDIS_TTL" split_words:"true" default:"168h"`
	PostgresDSN   string        `envconfig:"POSTGRES_DSN" split_words:"true"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("APP")

	llmCfg := configx.MustNew[llmclientx.Config]("LLM")
	completer := llmclientx.MustNew(*llmCfg)

	retriever := buildRetriever(completer)
	searcher := websearchx.MustNew(*configx.MustNew[websearchx.Config]("WEBSEARCH"))

	prompts := promptx.LoadPromptSet()

	pool, err := agents.NewPool(completer, retriever, searcher, *configx.MustNew[agents.Config]("AGENTS"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build agent pool")
	}

	driver, cleanup := buildHistoryDriver(appCfg)
	defer cleanup()

	store, err := history.NewTieredStore(driver, pool.Summarizer(), *configx.MustNew[history.Config]("HISTORY"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build history store")
	}

	rtr := routerx.New(completer, prompts.Router, *configx.MustNew[routerx.Config]("ROUTER"))
	gate := moderation.NewGate(
		moderation.NewLLMClassifier(completer, prompts.Moderation),
		*configx.MustNew[moderation.Config]("MODERATION"),
	)

	orc, err := orchestratorx.New(store, rtr, pool, gate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	server := &http.Server{
		Addr:    appCfg.Addr,
		Handler: api.NewHandler(orc).Routes(),
	}

	go func() {
		log.Info().Str("addr", appCfg.Addr).Str("history_driver", appCfg.HistoryDriver).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildRetriever wires the qdrant-backed retriever when QDRANT_* is
// configured; otherwise the RAG agent degrades to its no-documents reply.
func buildRetriever(embedder vectorstorex.Embedder) contractx.Retriever {
	cfg, err := configx.New[vectorstorex.Config]("QDRANT")
	if err != nil {
		log.Warn().Err(err).Msg("document retriever not configured, rag agent runs without retrieval")
		return nil
	}
	client, err := vectorstorex.New(*cfg, embedder)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build document retriever, rag agent runs without retrieval")
		return nil
	}
	return client
}

func buildHistoryDriver(cfg *AppConfig) (history.Driver, func()) {
	switch history.DriverType(cfg.HistoryDriver) {
	case history.DriverRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		client := redis.NewClient(opts)
		driver, err := history.NewDriver(history.DriverRedis,
			history.WithRedisClient(client),
			history.WithRedisTTL(cfg.RedisTTL),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build redis history driver")
		}
		return driver, func() { _ = driver.Close() }

	case history.DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN)))
		db := bun.NewDB(sqldb, pgdialect.New())
		if err := history.EnsureSchema(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure history schema")
		}
		driver, err := history.NewDriver(history.DriverPostgres, history.WithBunDB(db))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build postgres history driver")
		}
		return driver, func() { _ = driver.Close() }

	default:
		driver, err := history.NewDriver(history.DriverMemory)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build memory history driver")
		}
		return driver, func() { _ = driver.Close() }
	}
}
