package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dilemma-arena/internal/app"
	"dilemma-arena/internal/catalog"
	"dilemma-arena/internal/config"
	pgsource "dilemma-arena/internal/infra/postgres"
	redisinfra "dilemma-arena/internal/infra/redis"
	transport "dilemma-arena/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "3333"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source catalog.Source = catalog.NewStaticSource()
	if pool != nil {
		source = pgsource.NewDilemmaSource(pool)
	}
	if redisClient != nil {
		source = redisinfra.NewCatalogCache(redisClient, source, redisTTL)
	}

	cat, err := catalog.Load(ctx, source, cfg.Game.Shuffle)
	if err != nil {
		return err
	}
	log.Printf("catalog loaded with %d dilemmas", cat.Len())

	var index app.RoomIndex
	if redisClient != nil {
		index = redisinfra.NewRoomIndex(redisClient, redisTTL)
	}

	hub := transport.NewHub()
	manager := app.NewRoomManager(cat, hub, app.Options{
		DefaultCapacity: cfg.Game.DefaultCapacity,
		DefaultDilemmas: cfg.Game.DilemmasPerRoom,
		Index:           index,
	})

	retention := config.TTLDuration(cfg.Game.Retention, 10*time.Minute)
	sweepEvery := config.TTLDuration(cfg.Game.SweepInterval, time.Minute)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepFinishedRooms(sweepCtx, manager, retention, sweepEvery)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", transport.NewWSHandler(manager, hub).ServeWS)
	transport.NewAPI(manager, cat).Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting dilemma arena on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sweepFinishedRooms periodically reaps finished rooms kept around for
// late result viewing.
func sweepFinishedRooms(ctx context.Context, manager *app.RoomManager, retention, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := manager.SweepFinishedBefore(time.Now().Add(-retention)); removed > 0 {
				log.Printf("swept %d finished rooms", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
