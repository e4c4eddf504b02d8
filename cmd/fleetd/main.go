// The fleetd command runs the signage fleet controller
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	commandmqtt "github.com/piragazh/feasto-signage/internal/fleetd/command/mqtt"
	commandpg "github.com/piragazh/feasto-signage/internal/fleetd/command/postgres"
	"github.com/piragazh/feasto-signage/internal/fleetd/config"
	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	contentpg "github.com/piragazh/feasto-signage/internal/fleetd/content/postgres"
	"github.com/piragazh/feasto-signage/internal/fleetd/database"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	eventsredis "github.com/piragazh/feasto-signage/internal/fleetd/events/redis"
	"github.com/piragazh/feasto-signage/internal/fleetd/health"
	fleethttp "github.com/piragazh/feasto-signage/internal/fleetd/http"
	"github.com/piragazh/feasto-signage/internal/fleetd/logging"
	"github.com/piragazh/feasto-signage/internal/fleetd/memory"
	"github.com/piragazh/feasto-signage/internal/fleetd/migrations"
	"github.com/piragazh/feasto-signage/internal/fleetd/ratelimit"
	ratelimitredis "github.com/piragazh/feasto-signage/internal/fleetd/ratelimit/redis"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
	screenpg "github.com/piragazh/feasto-signage/internal/fleetd/screen/postgres"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen/service"
	"github.com/piragazh/feasto-signage/internal/fleetd/wall"
)

// screenStore is what the dispatcher and wall composer need from the registry
type screenStore interface {
	screen.Repository
	wall.ScreenStore
}

// stores holds the persistence backends selected by configuration
type stores struct {
	screens  screenStore
	commands command.Repository
	content  content.Repository
	db       *sql.DB
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("fleetd exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	var (
		rdb       *redis.Client
		publisher events.Publisher = events.NewLogPublisher(logger)
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		node, _ := os.Hostname()
		publisher = events.Fanout{publisher, eventsredis.NewPublisher(rdb, cfg.Redis.EventsChannel, node, logger)}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("publishing events to redis")
	}

	var limitStore ratelimit.Store = ratelimit.NewMemoryStore(clk)
	if cfg.RateLimit.Store == "redis" {
		limitStore = ratelimitredis.NewStore(rdb, clk)
	}
	limiter := ratelimit.NewService(limitStore, logger)
	if err := ratelimit.RegisterDefaultLimits(limiter, ratelimit.Limit{
		Rate:      cfg.RateLimit.DeviceRate,
		Period:    cfg.RateLimit.DevicePeriod,
		BurstSize: cfg.RateLimit.DeviceBurst,
	}); err != nil {
		return fmt.Errorf("failed to register rate limits: %w", err)
	}

	hub := fleethttp.NewHub(logger)
	defer hub.Close()
	notifiers := command.Notifiers{hub}

	var mqttClient paho.Client
	if cfg.MQTT.Broker != "" {
		opts := commandmqtt.Options{
			BrokerURL:      cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			PublishTimeout: cfg.MQTT.PublishTimeout,
		}
		mqttClient, err = commandmqtt.Connect(opts, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		defer mqttClient.Disconnect(250)
		notifiers = append(notifiers, commandmqtt.NewNotifier(mqttClient, opts, logger))
	}

	screenSvc := service.New(st.screens, publisher, clk, logger)
	dispatcher := command.NewDispatcher(st.screens, st.commands, publisher, clk, logger,
		command.WithNotifier(notifiers),
		command.WithSweepTimeout(cfg.Commands.SweepTimeout),
	)
	contentSvc := content.NewService(st.content, st.screens, publisher, clk, logger)
	wallSvc := wall.NewService(st.screens, screenSvc, contentSvc, clk, logger)

	if mqttClient != nil {
		if err := commandmqtt.NewAckListener(dispatcher, cfg.MQTT.TopicPrefix, logger).Subscribe(mqttClient); err != nil {
			return fmt.Errorf("failed to subscribe to acknowledgements: %w", err)
		}
	}

	monitor := health.NewMonitor(st.screens, publisher, clk, cfg.Health.PollInterval, logger)
	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("health monitor stopped")
		}
	}()

	handler := fleethttp.NewHandler(fleethttp.Options{
		Screens:                  screenSvc,
		Commands:                 dispatcher,
		Content:                  contentSvc,
		Walls:                    wallSvc,
		Limiter:                  limiter,
		Hub:                      hub,
		Ready:                    readiness(st.db, rdb),
		Clock:                    clk,
		SweepTimeout:             cfg.Commands.SweepTimeout,
		DefaultHeartbeatInterval: cfg.Health.DefaultHeartbeatInterval,
		Logger:                   logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Bool("tls", cfg.Server.TLSCert != "").
			Bool("postgres", st.db != nil).
			Bool("mqtt", mqttClient != nil).
			Msg("starting server")

		var err error
		if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
			err = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("server stopped")
	return nil
}

// openStores selects PostgreSQL when a database host is configured and the
// in-memory repositories otherwise
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if !cfg.Database.Enabled() {
		logger.Warn().Msg("no database configured, state is kept in memory")
		return &stores{
			screens:  memory.NewScreenRepository(),
			commands: memory.NewCommandRepository(),
			content:  memory.NewContentRepository(),
		}, nil
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := database.Open(openCtx, cfg.Database.DSN(), database.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := migrations.NewManager(db, logger).Apply(openCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	return &stores{
		screens:  screenpg.NewRepository(db, logger),
		commands: commandpg.NewRepository(db, logger),
		content:  contentpg.NewRepository(db, logger),
		db:       db,
	}, nil
}

func readiness(db *sql.DB, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
