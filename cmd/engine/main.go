package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/events"
	"github.com/nelson-zack/job-radar/internal/httpapi"
	"github.com/nelson-zack/job-radar/internal/poll"
	"github.com/nelson-zack/job-radar/internal/secrets"
)

func main() {
	// Engine data dir: use env if provided, else ./data.
	dataDir := os.Getenv("RADAR_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir, config.ResolvePath(""))
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := poll.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer st.Close()

	hub := events.NewHub()

	runner := &poll.Runner{Cfg: cfg, Live: &cfgVal, Store: st, Hub: hub}
	if runner.Digest, err = poll.NewDigest(cfg); err != nil {
		log.Printf("[notify] disabled err=%v", err)
	}
	if mb, err := poll.NewMailbox(cfg); err != nil {
		log.Printf("[mailseed] disabled err=%v", err)
	} else if mb != nil {
		runner.Mailbox = mb
	}
	go runner.Start(ctx)

	deps := httpapi.Deps{
		Store:       st,
		Runner:      runner,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		AdminToken:  adminToken,
	}
	mux := httpapi.NewMux(deps)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownToken, err := randomToken(32)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))
	if err := writeShutdownToken(filepath.Join(dataDir, "shutdown.token"), shutdownToken); err != nil {
		log.Printf("[engine] shutdown token not written err=%v", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("engine listening on http://%s (db=%s config=%s)", addr, cfg.Database.Driver, userCfgPath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}

// adminToken is re-read per request so a keyring change applies without a
// restart.
func adminToken() string {
	tok, err := secrets.AdminToken()
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			log.Printf("[secrets] admin token err=%v", err)
		}
		return ""
	}
	return tok
}
