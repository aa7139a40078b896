package controller

import (
	"solar-parcel-be/internal/pkg/serverutils"
	"solar-parcel-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISchemaController interface {
	RegisterRoutes(r fiber.Router)
	Describe(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
}

type schemaController struct {
	service   service.ISchemaService
	jwtSecret string
}

func NewSchemaController(service service.ISchemaService, jwtSecret string) ISchemaController {
	return &schemaController{service: service, jwtSecret: jwtSecret}
}

func (c *schemaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/schema")
	h.Get("/", c.Describe)
	h.Post("/refresh", serverutils.JwtMiddleware(c.jwtSecret), c.Refresh)
}

func (c *schemaController) Describe(ctx *fiber.Ctx) error {
	res, err := c.service.Describe(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Schema", res))
}

func (c *schemaController) Refresh(ctx *fiber.Ctx) error {
	if !c.service.Refresh() {
		return ctx.Status(fiber.StatusNotImplemented).JSON(serverutils.ErrorResponse(501, "schema provider has no cache to refresh"))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Schema cache cleared", nil))
}
