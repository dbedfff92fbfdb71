package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"schedboard/config"
	"schedboard/database"
	"schedboard/database/seeders"
	"schedboard/gateway"
	"schedboard/models"
	"schedboard/routes"
	"schedboard/schedule"
	"schedboard/services"
	"schedboard/services/websocket"
	"schedboard/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	appmiddleware "schedboard/middleware"
)

func setupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logPath := config.AppConfig.LogFile
	if logPath == "" {
		logrus.SetOutput(os.Stdout)
		return
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		log.Printf("Warning: cannot create log directory: %v", err)
		logrus.SetOutput(os.Stdout)
		return
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: cannot open log file: %v", err)
		logrus.SetOutput(os.Stdout)
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, file))
}

func main() {
	config.LoadConfig()
	setupLogging()

	database.Connect()
	defer database.Close()

	seeders.SeedAll()

	hub := websocket.NewHub()
	go hub.Run()

	var notifier gateway.Notifier
	if database.RedisClient != nil {
		notifier = gateway.NewRedisNotifier(database.RedisClient)
	}
	gw := gateway.New(
		gateway.NewMySQLBackend(database.DB),
		notifier,
		gateway.WithMaxAttempts(config.AppConfig.SaveMaxAttempts),
		gateway.WithBackoffStep(config.AppConfig.SaveBackoff),
	)

	st := store.New(models.EmptySnapshot(schedule.WeekWindow(time.Now())))

	var archive *services.ArchiveService
	if config.AppConfig.ArchiveEnabled {
		var err error
		archive, err = services.NewArchiveService()
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize snapshot archive")
		}
		archive.StartRetentionSweep()
		defer archive.Stop()
	}

	board := services.NewBoardService(st, gw, hub, archive)

	ctx := context.Background()
	if err := board.Bootstrap(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to load snapshots")
	}
	if err := board.StartWatchers(ctx); err != nil {
		logrus.WithError(err).Warn("Cross-session change notifications unavailable")
	}
	defer board.StopWatchers()

	// Local draft mutations reach connected clients the same way remote
	// ones do.
	st.Subscribe(func(snap models.Snapshot) {
		hub.BroadcastSnapshot(gateway.SlotDraft, snap)
	})

	app := fiber.New(fiber.Config{
		AppName:   "Schedule Board API",
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(appmiddleware.LoggerMiddleware())

	routes.SetupRoutes(app, board, hub)

	logrus.WithFields(logrus.Fields{
		"port": config.AppConfig.Port,
		"env":  config.AppConfig.AppEnv,
	}).Info("Starting Schedule Board API")

	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}
