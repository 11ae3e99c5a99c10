package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/config"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/logging"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	_ "github.com/ahmetcoskunkizilkaya/yamdb/docs"
)

// @title YaMDb API
// @version 1.0
// @description Reviews of works (films, books, music) with ratings and comments.

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer <token>" from /v1/auth/token/

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "YaMDb API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createSuperuserCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, installs the stdout logger and connects to the
// database. Every command starts here.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		return nil, nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		return nil, nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
