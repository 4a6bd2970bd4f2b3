package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/config"
	"github.com/lherron/syncp/internal/db"
	"github.com/lherron/syncp/internal/logging"
	"github.com/lherron/syncp/internal/server"
)

func main() {
	addr := flag.String("addr", os.Getenv("SYNCPD_ADDR"), "Listen address (default from config, 127.0.0.1:8420)")
	unixPath := flag.String("unix", os.Getenv("SYNCPD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("SYNCPD_TOKEN"), "Shared bearer token (empty disables auth)")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	principal := flag.String("principal", "", "Principal for requests without X-Syncp-As (defaults to config)")
	migrate := flag.Bool("migrate", false, "Apply pending migrations before serving")
	flag.Parse()

	if err := run(*addr, *unixPath, *token, *dbPath, *principal, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, unixPath, token, dbPath, principal string, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr == "" {
		addr = cfg.ListenAddr
	}
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if principal == "" {
		principal = cfg.Principal
	}

	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if migrate {
		applied, err := database.Migrate()
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		for _, m := range applied {
			log.Info("applied migration", zap.String("migration", m))
		}
	} else if err := database.RequiresMigrationError(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Addr:      addr,
		Unix:      unixPath,
		Token:     token,
		Principal: principal,
		Log:       log,
	}
	log.Info("serving repository", zap.String("db", database.Path()), zap.String(logging.FieldPrincipal, principal))
	return server.New(database, opts).Serve(ctx, opts)
}
