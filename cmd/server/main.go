package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelrealm.gg/internal/persistence/chardb"
	persistlog "voxelrealm.gg/internal/persistence/log"
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/room"
	"voxelrealm.gg/internal/sim/tuning"
	"voxelrealm.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		roomID     = flag.String("room", "room_1", "room id")
		seed       = flag.Int64("seed", 0, "world seed override (0 keeps the tuning value)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the character store")
		disableLog = flag.Bool("disable_log", false, "disable tick/combat logging")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	if cats.QuestsErr != nil {
		logger.Printf("quest table degraded: %v", cats.QuestsErr)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	roomDir := filepath.Join(*dataDir, "rooms", *roomID)
	_ = os.MkdirAll(roomDir, 0o755)

	r, err := room.New(room.Config{ID: *roomID, Tuning: tune}, cats, logger)
	if err != nil {
		logger.Fatalf("create room: %v", err)
	}

	if !*disableLog {
		tickLog := persistlog.NewTickLogger(roomDir)
		defer tickLog.Close()
		combatLog := persistlog.NewCombatLogger(roomDir)
		defer combatLog.Close()
		r.SetTickLogger(tickLog)
		r.SetCombatLogger(combatLog)
	}
	if !*disableDB {
		store, err := chardb.Open(filepath.Join(roomDir, "characters.db"))
		if err != nil {
			logger.Fatalf("open character store: %v", err)
		}
		defer store.Close()
		r.SetCharacterStore(store)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("room stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(r, logger).Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("room %s listening on %s (seed %d, tick %d Hz)", *roomID, *addr, tune.Seed, tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
}
