// Copyright 2025 Lexrag Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lexrag/lexrag/advisor"
	"github.com/lexrag/lexrag/ai"
	"github.com/lexrag/lexrag/ai/bedrock"
	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/httpapi"
	"github.com/lexrag/lexrag/ingestion"
	"github.com/lexrag/lexrag/objectstore"
	"github.com/lexrag/lexrag/objectstore/s3"
	"github.com/lexrag/lexrag/rag"
	"github.com/lexrag/lexrag/retrieval"
	"github.com/lexrag/lexrag/session"
	sessionbadger "github.com/lexrag/lexrag/session/badger"
	"github.com/lexrag/lexrag/telegram"
	"github.com/lexrag/lexrag/vectorstore"
	vectorbadger "github.com/lexrag/lexrag/vectorstore/badger"
	"github.com/lexrag/lexrag/vectorstore/chroma"
)

func main() {
	app := &cli.App{
		Name:  "lexrag",
		Usage: "RAG pipeline and chatbot for legal document corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with configuration",
				Value: ".env",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP query API",
				Action: serveCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Index every document from the object store into the vector store",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Ingest from a local directory instead of S3",
					},
				},
			},
			{
				Name:   "bot",
				Usage:  "Run the Telegram relay bot against a query API",
				Action: botCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	vectors, err := newVectorStore(cfg, provider.Embedder())
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer vectors.Close()

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()

	machine, err := session.NewMachine(provider.Chat(), sessions,
		session.WithSystemPrompt(rag.SystemPrompt))
	if err != nil {
		return fmt.Errorf("creating session machine: %w", err)
	}

	adv, err := advisor.New(provider.Chat())
	if err != nil {
		return fmt.Errorf("creating advisor: %w", err)
	}

	retriever, err := retrieval.New(vectors)
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}

	orchestrator, err := rag.New(adv, retriever, machine, provider.ModelID(),
		rag.WithMaxContextDocs(cfg.Vector.MaxContextDocs))
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	handler := httpapi.NewHandler(orchestrator, nil)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	vectors, err := newVectorStore(cfg, provider.Embedder())
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer vectors.Close()

	var objects objectstore.Store
	if dir := c.String("dir"); dir != "" {
		objects, err = objectstore.NewDirStore(dir)
		if err != nil {
			return fmt.Errorf("opening directory store: %w", err)
		}
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading AWS configuration: %w", err)
		}
		objects, err = s3.New(awss3.NewFromConfig(awsCfg), cfg.AWS.Bucket)
		if err != nil {
			return fmt.Errorf("opening S3 store: %w", err)
		}
	}

	pipeline, err := ingestion.New(objects, vectors,
		ingestion.WithChunking(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap))
	if err != nil {
		return fmt.Errorf("creating ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	report, err := pipeline.IngestAll(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func botCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	bot, err := telegram.NewBot(cfg.Telegram.BotToken, telegram.NewClient(cfg.Telegram.APIURL), nil)
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}

	bot.Run(ctx)
	return nil
}

// newProvider builds the Bedrock AI provider from the loaded configuration.
func newProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	provider, err := bedrock.NewProvider(bedrockruntime.NewFromConfig(awsCfg), bedrock.Config{
		ModelID:          cfg.AWS.ModelID,
		EmbeddingModelID: cfg.AWS.EmbeddingModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bedrock provider: %w", err)
	}
	return provider, nil
}

// newVectorStore picks the Chroma server backend when CHROMA_URL is set,
// falling back to the embedded store at CHROMA_LOCAL_PATH.
func newVectorStore(cfg *config.Config, embedder ai.Embedder) (vectorstore.Store, error) {
	if cfg.Vector.URL != "" {
		return chroma.New(cfg.Vector.URL, cfg.Vector.Collection, embedder)
	}
	return vectorbadger.New(cfg.Vector.LocalPath, cfg.Vector.Collection, embedder)
}

// newSessionStore persists histories under SESSION_DB_PATH, or keeps them
// in memory when unset.
func newSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.Session.DBPath != "" {
		return sessionbadger.New(cfg.Session.DBPath)
	}
	return session.NewMemoryStore(), nil
}

// setup loads the optional .env file and configures logging.
func setup(c *cli.Context) error {
	// Missing .env files are fine; the environment may carry everything.
	if err := godotenv.Load(c.String("env-file")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading env file: %w", err)
	}

	levelStr := strings.ToLower(c.String("log-level"))
	// DEBUG_MODE elevates logging unless --log-level was given explicitly.
	if !c.IsSet("log-level") {
		if debug, _ := strconv.ParseBool(os.Getenv("DEBUG_MODE")); debug {
			levelStr = "debug"
		}
	}

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
