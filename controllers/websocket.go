package controllers

import (
	"schedboard/middleware"
	"schedboard/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// HandleWebSocket attaches an upgraded connection to the hub. The JWT
// middleware ran before the upgrade, so the claims are in Locals.
func (wc *WebSocketController) HandleWebSocket(c *fiberws.Conn) {
	var userID uint
	if claims, ok := c.Locals("claims").(*middleware.Claims); ok {
		userID = claims.UserID
	}
	wc.hub.ServeFiberWS(c, userID)
}

// GetStats returns websocket connection statistics
func (wc *WebSocketController) GetStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wc.hub.GetClientCount(),
	})
}
