package routes

import (
	"schedboard/controllers"
	"schedboard/middleware"
	"schedboard/services"
	"schedboard/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, board *services.BoardService, hub *websocket.Hub) {
	authController := &controllers.AuthController{}
	boardController := controllers.NewBoardController(board)
	wsController := controllers.NewWebSocketController(hub)
	healthController := &controllers.HealthController{}

	app.Get("/health", healthController.HealthCheck)

	api := app.Group("/api")

	// Public routes: the read-only published surface needs no credentials
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)

	public := api.Group("/public")
	public.Get("/board", boardController.GetPublished)
	public.Post("/board/view", boardController.GetView)
	public.Get("/calendar/month", boardController.GetMonthGrid)

	// Protected routes
	protected := api.Group("", middleware.JWTMiddleware())

	protected.Get("/auth/profile", authController.GetProfile)
	protected.Put("/auth/password", authController.ChangePassword)

	boardGroup := protected.Group("/board")
	boardGroup.Get("/draft", boardController.GetDraft)
	boardGroup.Post("/view", boardController.GetView)
	boardGroup.Post("/conflict", boardController.CheckConflict)
	boardGroup.Get("/calendar/month", boardController.GetMonthGrid)

	events := boardGroup.Group("", middleware.RequirePermission(middleware.PermEditEvents))
	events.Post("/rows/:rowId/days/:dayKey/events", boardController.AddEvent)
	events.Put("/rows/:rowId/days/:dayKey/events", boardController.UpdateEvent)
	events.Delete("/rows/:rowId/days/:dayKey/events/:eventId", boardController.DeleteEvent)
	events.Post("/events/:eventId/move", boardController.MoveEvent)
	events.Post("/events/:eventId/copy", boardController.CopyEvent)
	events.Post("/save", boardController.SaveDraft)

	instructors := boardGroup.Group("/instructors", middleware.RequirePermission(middleware.PermManageInstructors))
	instructors.Post("/", boardController.AddInstructor)
	instructors.Put("/:id", boardController.UpdateInstructor)
	instructors.Delete("/:id", boardController.DeleteInstructor)

	boardConfig := boardGroup.Group("/config", middleware.RequirePermission(middleware.PermEditConfig))
	boardConfig.Put("/title", boardController.UpdateTitle)
	boardConfig.Put("/window", boardController.UpdateWindow)
	boardConfig.Post("/navigate/week", boardController.NavigateWeek)
	boardConfig.Post("/navigate/month", boardController.NavigateMonth)
	boardConfig.Post("/migrate-day-keys", boardController.MigrateDayKeys)

	boardGroup.Post("/publish", middleware.RequirePermission(middleware.PermPublish), boardController.Publish)

	// WebSocket routes
	protected.Get("/ws/stats", wsController.GetStats)
	app.Use("/ws", middleware.JWTMiddleware(), func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(wsController.HandleWebSocket))
}
