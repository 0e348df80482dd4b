package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"vibecoder.app/console/common/id"
	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/common/otel"
	"vibecoder.app/console/core/config"
	"vibecoder.app/console/internal/agent"
	"vibecoder.app/console/internal/board"
	"vibecoder.app/console/internal/console"
	"vibecoder.app/console/internal/conversation"
	"vibecoder.app/console/internal/identity"
	"vibecoder.app/console/internal/model"
	"vibecoder.app/console/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceTypeConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize otel: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the transcript; logs go to stderr.
	logger.Setup(cfg, os.Stderr)

	if err := id.Init(cfg.Session.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Board.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "redis unreachable, board will stay on defaults", "error", err)
	}

	agentClient, err := agent.New(agent.Config{BaseURL: cfg.Agent.BaseURL})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create agent client", "error", err)
		os.Exit(1)
	}
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := agentClient.Health(healthCtx); err != nil {
		slog.WarnContext(ctx, "agent service health check failed", "error", err, "base_url", cfg.Agent.BaseURL)
	}
	cancel()

	threads, err := threadSource(cfg.Session)
	if err != nil {
		slog.ErrorContext(ctx, "invalid session thread id", "error", err)
		os.Exit(1)
	}

	printer := console.NewPrinter(os.Stdout)
	session := console.New(threads, agentClient, store.NewStores(redisClient, cfg.Board.KeyPrefix).Boards(),
		console.WithObserver(printer),
		console.WithPipelineOptions(conversation.WithTimeout(cfg.Agent.Timeout)),
	)

	if err := session.Start(ctx); err != nil {
		slog.WarnContext(ctx, "board unavailable", "error", err)
	}
	fmt.Printf("Connected to the Agency on thread %s\n", session.ThreadID())
	fmt.Println("Type a message and press enter. /board shows the project board, /quit exits.")

	run(ctx, session, printer)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := session.Close(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "session shutdown error", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}
}

func threadSource(cfg config.SessionConfig) (console.ThreadSource, error) {
	if cfg.ThreadID == "" {
		return identity.NewProvider(cfg.Prefix), nil
	}
	thread, err := model.NewThreadID(cfg.ThreadID)
	if err != nil {
		return nil, err
	}
	return identity.Resume(thread), nil
}

func run(ctx context.Context, session *console.Session, printer *console.Printer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return
			case "/board":
				if session.Board().State != board.StateAttached {
					// Reopens the subscription if the first attach failed.
					if err := session.Start(ctx); err != nil {
						slog.WarnContext(ctx, "board unavailable", "error", err)
					}
				}
				printer.PrintBoard(session.Board())
				continue
			}

			_, err := session.Submit(ctx, line)
			switch {
			case err == nil, errors.Is(err, conversation.ErrEmptyInput):
			case errors.Is(err, conversation.ErrTurnInFlight):
				fmt.Println("(the Agency is still answering your last message)")
			default:
				slog.ErrorContext(ctx, "submit failed", "error", err)
			}
		}
	}
}
