package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"starfield/server/internal/config"
	logpkg "starfield/server/internal/log"
	"starfield/server/internal/rewards"
	"starfield/server/internal/store"
)

func main() {
	var (
		addr       string
		configPath string
	)
	flag.StringVar(&addr, "addr", "", "listen address override, e.g. :8080")
	flag.StringVar(&configPath, "config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	logger := logpkg.New(cfg.LogLevel)

	st, err := store.NewSQLite(cfg.StorePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open player store")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := newHub(cfg, logpkg.Component(logger, "hub"), st, rewards.Defaults())
	hub.StartSimulations(ctx)

	// Seed the default map so NPCs exist before the first player joins.
	home := hub.getOrCreateMap(defaultMapID)
	home.spawnNPCs("scout", 6)
	home.spawnNPCs("marauder", 3)
	home.spawnNPCs("dreadnought", 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Status     string         `json:"status"`
			ServerTime int64          `json:"serverTime"`
			TickRate   int            `json:"tickRate"`
			Maps       map[string]int `json:"maps"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Maps:       hub.mapCounts(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Addr).Msg("starfield sync server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	// Sockets are closed and tick loops stopped; wait for every dispatched
	// save to land before the process goes away.
	hub.WaitSaves()
	if err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
