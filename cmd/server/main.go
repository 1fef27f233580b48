package main

import (
	"fmt"
	"os"

	"standup-tracker/internal/config"
	"standup-tracker/internal/db"
	"standup-tracker/internal/handler"
	"standup-tracker/internal/logger"
	"standup-tracker/internal/middleware"
	"standup-tracker/internal/profile"
	"standup-tracker/internal/session"
	"standup-tracker/internal/standup"
	"standup-tracker/internal/stats"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:          "standup-server",
		Short:        "Team standup tracker server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file path (e.g. etc/config-dev.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and the stats view, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := setup()
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			logger.Info("migration complete")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	_ = godotenv.Load()
	cfg := config.Load(configFile)
	logger.Init(cfg.Log)

	gdb, err := cfg.OpenGormDB()
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	return cfg, gdb, nil
}

func runServe() error {
	cfg, gdb, err := setup()
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	resolver := profile.NewResolver(gdb)
	sessions := session.NewStore(gdb, resolver, cfg.Auth)
	defer sessions.Close()

	unsubscribe := sessions.Subscribe(func(ev session.Event) {
		logger.Info("auth state changed", "kind", ev.Kind, "uid", ev.Identity.ID)
	})
	defer unsubscribe()

	repo := standup.NewRepository(gdb)
	agg := stats.NewAggregator(gdb)

	dashH := handler.NewDashboardHandler(repo, resolver, agg)
	authH := handler.NewAuthHandler(sessions, dashH)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.POST("/api/login", authH.Login)
	r.POST("/api/signup", authH.Signup)

	api := r.Group("/api", middleware.JWTAuth(sessions))
	api.POST("/logout", authH.Logout)
	api.GET("/dashboard", dashH.Mount)
	api.GET("/dashboard/entries", dashH.Entries)
	api.PUT("/dashboard/filter", dashH.SetFilter)
	api.POST("/dashboard/overlay", dashH.OpenOverlay)
	api.DELETE("/dashboard/overlay", dashH.CloseOverlay)
	api.POST("/entries", dashH.CreateEntry)
	api.PUT("/entries/:id", dashH.UpdateEntry)
	api.DELETE("/entries/:id", dashH.DeleteEntry)
	api.GET("/stats", dashH.Stats)

	logger.Info("server starting", "addr", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		logger.Error("server failed", "err", err)
		return err
	}
	return nil
}
