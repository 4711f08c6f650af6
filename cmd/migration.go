package cmd

import (
	"fmt"
	"log"

	"golang-jobrunner/config"
	"golang-jobrunner/internal/migrations"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/common"
	"golang-jobrunner/pkg/database"
	"golang-jobrunner/pkg/logger"

	"github.com/spf13/cobra"
)

func runMigrations(direction string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.DB.Driver == common.DB_DRIVER_SQLITE || cfg.DB.Driver == "sqlite3" {
		migrateSQLite(cfg, direction)
		return
	}

	if err := migrations.Run(database.PostgresURL(cfg.DB), direction); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if direction == migrations.DirectionUp {
		fmt.Println("Applied migrations successfully.")
	} else {
		fmt.Println("Reverted last migration successfully.")
	}
}

// migrateSQLite bootstraps the schema from the models; there is no
// versioned history to revert.
func migrateSQLite(cfg *config.Config, direction string) {
	if direction != migrations.DirectionUp {
		log.Fatalf("sqlite databases only support migrate up")
	}
	db, err := database.NewDB(cfg.DB, logger.NewNop())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Applied migrations successfully.")
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all available database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		runMigrations(migrations.DirectionUp)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the last database migration",
	Run: func(cmd *cobra.Command, args []string) {
		runMigrations(migrations.DirectionDown)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func init() {
	migrateCmd.AddCommand(upCmd)
	migrateCmd.AddCommand(downCmd)
}
