// cmd/smart-complete-rpc/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/randalmurphy/smart-complete/internal/config"
	"github.com/randalmurphy/smart-complete/internal/rpc"
	"github.com/randalmurphy/smart-complete/internal/service"
	"github.com/spf13/cobra"
)

const (
	serverName    = "smart-complete-rpc"
	serverVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "smart-complete-rpc",
	Short: "Completion server for editors",
	Long:  `A JSON-RPC server answering ranked completion requests over stdin/stdout.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the completion server",
	Long:  `Start the server listening on stdin/stdout for line-delimited JSON-RPC messages.`,
	RunE:  runServe,
}

var (
	configPath string
	logFile    string
	workspace  string
)

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Config file (defaults to ~/.config/smart-complete/config.yaml)")
	serveCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (defaults to logging.file, then ~/.cache/smart-complete/server.log)")
	serveCmd.Flags().StringVar(&workspace, "workspace", ".", "Directory whose .smart-complete.yaml restricts completions")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	// Stdout carries the protocol, so logs go to a file.
	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	logger.Info("starting completion server", "name", serverName, "version", serverVersion, "config", path)

	svc, err := service.New(cfg, workspace, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	server := rpc.NewServer(serverName, serverVersion, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := svc.WatchWorkspace(ctx); err != nil {
		logger.Warn("workspace file will not be reloaded", "error", err)
	}

	if interval := cfg.Predictors.RestartInterval; interval > 0 {
		go svc.Supervise(ctx, interval)
	}

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("server stopped")
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	path := logFile
	if path == "" {
		path = cfg.Logging.File
	}
	if path == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = os.TempDir()
		}
		path = filepath.Join(cacheDir, "smart-complete", "server.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))

	cleanup := func() {
		file.Close()
	}

	return logger, cleanup, nil
}
