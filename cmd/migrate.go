package cmd

import (
	"log"

	"tunesync/core/config"
	"tunesync/core/database"
	"tunesync/core/logger"
	"tunesync/feature/sync/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the sync schema. The unique indexes it
// installs over the idempotency keys are load-bearing: replay
// correctness depends on them.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Creates or updates the sync schema, including the unique indexes replay idempotency relies on.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}

		if err := db.AutoMigrate(models.All()...); err != nil {
			logg.Fatal("Migration failed", zap.Error(err))
		}
		logg.Info("Migration complete", zap.Int("models", len(models.All())))
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
