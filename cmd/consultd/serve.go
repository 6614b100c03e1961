package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/app"
	"github.com/Freeeeeet/consult_sessions/internal/config"
	"github.com/Freeeeeet/consult_sessions/internal/controller/api"
	"github.com/Freeeeeet/consult_sessions/internal/controller/telegram"
	"github.com/Freeeeeet/consult_sessions/internal/realtime"
	"github.com/Freeeeeet/consult_sessions/internal/repository"
	"github.com/Freeeeeet/consult_sessions/internal/repository/memory"
	"github.com/Freeeeeet/consult_sessions/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, realtime hub and background sweeper",
	RunE:  runServe,
}

// stores хранилища, выбранные по конфигурации
type stores struct {
	slots    service.SlotStore
	sessions service.SessionStore
	users    service.UserStore
	close    func()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting consultd",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("timezone", cfg.Location.String()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	hub := realtime.NewHub()
	var relay realtime.Relay
	if cfg.NATSURL != "" {
		nr, err := realtime.NewNATSRelay(cfg.NATSURL, hub, logger)
		if err != nil {
			return err
		}
		defer nr.Close()
		if err := nr.Start(); err != nil {
			return err
		}
		relay = nr
		logger.Info("Realtime relay enabled", zap.String("nats_url", cfg.NATSURL))
	} else {
		logger.Info("Realtime relay disabled (NATS_URL not set)")
	}
	coordinator := realtime.NewCoordinator(hub, relay, logger)

	slotService := service.NewSlotService(st.slots, cfg.Location, logger)
	bookingService := service.NewBookingService(st.sessions, coordinator, cfg.Location, logger)
	sessionService := service.NewSessionService(st.sessions, coordinator, logger)
	userService := service.NewUserService(st.users, logger)

	var botController *telegram.BotController
	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		botController = telegram.NewBotController(b, st.sessions, userService, hub, telegram.NewFormatter(cfg.Location), logger)
	} else {
		logger.Info("Telegram notifications disabled (TELEGRAM_TOKEN not set)")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(slotService, bookingService, sessionService, userService, hub, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	scheduler := app.NewScheduler(sessionService, cfg.SweepInterval, logger)
	scheduler.Start(gctx)
	defer scheduler.Stop()

	if botController != nil {
		if err := botController.RegisterHandlers(gctx); err != nil {
			logger.Warn("Telegram commands menu not set", zap.Error(err))
		}
		g.Go(func() error { return botController.Start(gctx) })
	}

	err = g.Wait()
	logger.Info("consultd stopped")
	return err
}

// openStores подключает PostgreSQL и применяет миграции, без DB_DSN работает в памяти
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DBDSN == "" {
		logger.Warn("DB_DSN not set, using in-memory store")
		mem := memory.New()
		return &stores{
			slots:    mem.Slots(),
			sessions: mem.Sessions(),
			users:    mem.Users(),
			close:    func() {},
		}, nil
	}

	pool, err := connectDB(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database")

	if err := migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		slots:    repository.NewSlotRepository(pool),
		sessions: repository.NewSessionRepository(pool),
		users:    repository.NewUserRepository(pool),
		close:    pool.Close,
	}, nil
}

func connectDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
