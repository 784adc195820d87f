package aistrack

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theoremus-urban-solutions/aistrack/tracking"
)

type healthResponse struct {
	Status        string         `json:"status"`
	Stores        tracking.Stats `json:"stores"`
	StreamClients int            `json:"streamClients"`
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:        "ok",
		Stores:        h.tracker.Stats(c.UserContext()),
		StreamClients: h.hub.Len(),
	})
}
