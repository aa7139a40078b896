package controller

import (
	"context"
	"time"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	database Pinger
	memory   Pinger
}

// NewHealthController probes the parcel database and the conversation store. Either may be nil.
func NewHealthController(database, memory Pinger) IHealthController {
	return &healthController{database: database, memory: memory}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 3*time.Second)
	defer cancel()

	res := dto.HealthResponse{
		Status:   "ok",
		Database: probe(pingCtx, c.database),
		Memory:   probe(pingCtx, c.memory),
	}
	if res.Database == "down" || res.Memory == "down" {
		res.Status = "degraded"
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.BaseResponse[dto.HealthResponse]{
			Success: false,
			Code:    fiber.StatusServiceUnavailable,
			Message: "Service degraded",
			Data:    res,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Service healthy", res))
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}
