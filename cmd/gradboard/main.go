package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/reboot-tools/gradboard/internal/config"
	"github.com/reboot-tools/gradboard/internal/db"
	"github.com/reboot-tools/gradboard/internal/httpapi"
	"github.com/reboot-tools/gradboard/internal/platform"
	"github.com/reboot-tools/gradboard/internal/ratelimit"
	"github.com/reboot-tools/gradboard/internal/session"
	"github.com/reboot-tools/gradboard/internal/webui"
)

const sessionPurgeInterval = time.Hour

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	if errRun := run(os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the dashboard server.
func run(args []string) error {
	fs := flag.NewFlagSet("gradboard", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port (overrides config)")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}

	cfg, errLoad := config.Load(appCfg.ConfigPath)
	if errLoad != nil {
		return errLoad
	}
	if *port > 0 {
		cfg.Port = *port
	} else {
		envPort, errPort := config.ParsePort(os.Getenv(config.EnvPort), cfg.Port)
		if errPort != nil {
			return errPort
		}
		cfg.Port = envPort
	}
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return fmt.Errorf("open database: %w", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}
	log.WithField("dialect", db.DialectName(conn)).Info("database ready")

	sessions := session.NewStore(conn, cfg.Session.TTL)
	go purgeSessions(ctx, sessions)

	client := platform.New(cfg.Platform.BaseURL, cfg.Platform.ModulePath)
	limiter := ratelimit.NewManager(cfg.RateLimit)

	bundle, errBundle := webui.Load()
	if errBundle != nil {
		return errBundle
	}

	handler := httpapi.NewHandler(conn, client, sessions, limiter, cfg.Session.TTL)
	engine := httpapi.NewRouter(handler, bundle)

	log.WithField("platform", client.BaseURL()).Info("starting dashboard server")
	return httpapi.Serve(ctx, engine, cfg.Port)
}

// purgeSessions removes expired session rows on a fixed interval.
func purgeSessions(ctx context.Context, sessions *session.Store) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, errPurge := sessions.PurgeExpired(ctx)
			if errPurge != nil {
				log.WithError(errPurge).Warn("purge expired sessions failed")
				continue
			}
			if removed > 0 {
				log.WithField("count", removed).Debug("purged expired sessions")
			}
		}
	}
}
