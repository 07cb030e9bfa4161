package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	appcfg "github.com/park285/chess-live/internal/config"
	"github.com/park285/chess-live/internal/invite"
	"github.com/park285/chess-live/internal/matchmaking"
	"github.com/park285/chess-live/internal/obslog"
	"github.com/park285/chess-live/internal/ops"
	"github.com/park285/chess-live/internal/registry"
	"github.com/park285/chess-live/internal/room"
	"github.com/park285/chess-live/internal/settle"
	"github.com/park285/chess-live/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	logger := obslog.L()

	rdb, err := openRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New()
	settleRepo := settle.NewRepository(db)
	settler := settle.NewSettler(settleRepo, cfg.RatingWinBonus, cfg.RatingDrawBonus, logger)
	snaps := room.NewRedisStore(rdb, cfg.SnapshotTTL())
	hub := room.NewHub(ctx, snaps, settler, logger)
	queue := matchmaking.NewQueue(logger)
	relay := invite.NewRelay(invite.NewRepository(db), reg, logger)

	wsServer := transport.NewServer(reg, hub, queue, relay, cfg.SendTimeout())
	opsServer := ops.NewServer(relay, settleRepo, reg)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: wsServer.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := queue.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := opsServer.Serve(gctx, cfg.OpsListenAddr)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	logger.Info("coordinator_started",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("ops_listen_addr", cfg.OpsListenAddr),
	)

	if err := g.Wait(); err != nil {
		logger.Error("coordinator_stopped", zap.Error(err))
	} else {
		logger.Info("coordinator_stopped")
	}

	_ = rdb.Close()
	_ = db.Close()
}

func openRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
