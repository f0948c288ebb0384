package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunesync/core/config"
	"tunesync/core/database"
	"tunesync/core/loader"
	"tunesync/core/logger"
	"tunesync/core/middleware/auth"
	"tunesync/core/middleware/identity"
	"tunesync/core/middleware/rayid"
	"tunesync/core/storage"
	"tunesync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}
		logg.Info("Connected to database", zap.String("name", cfg.Database.Name))

		// 4. Initialize Storage (optional; changesets degrade to no
		// stream URLs without it)
		var store storage.Client
		if client, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Optional storage client failed", zap.Error(err))
		} else {
			store = client
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if ok, err := store.BucketExists(ctx, cfg.Storage.Bucket); err != nil || !ok {
				logg.Warn("Audio bucket not reachable",
					zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
			}
			cancel()
		}

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
			ReadTimeout:           cfg.Server.RequestTimeout(),
			WriteTimeout:          cfg.Server.RequestTimeout(),
		})

		// 6. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(sync.NewFeature(db, store, cfg.Storage.Bucket, cfg.Sync, logg))

		// Middleware Registration
		// RayID must be first to trace everything
		app.Use(rayid.New())

		// Request logging with Zap + RayID
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Auth (protect the API), then identity resolution for every
		// sync operation
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))
		app.Use(identity.New(db))

		// 7. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
