package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/pkg/serverutils"
	"solar-parcel-be/internal/service"
	internalWS "solar-parcel-be/internal/websocket"
	"solar-parcel-be/pkg/agent/state"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ISearchController interface {
	RegisterRoutes(r fiber.Router)
	Search(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type searchController struct {
	service service.ISearchService
	logger  logger.ILogger
}

func NewSearchController(service service.ISearchService, log logger.ILogger) ISearchController {
	return &searchController{service: service, logger: log}
}

func (c *searchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/search")
	h.Post("/", c.Search)
	h.Post("/stream", c.Stream)
	h.Get("/ws", c.ServeWs)

	s := r.Group("/sessions")
	s.Get("/:id", c.GetSession)
	s.Delete("/:id", c.DeleteSession)
}

func (c *searchController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Search(ctx.UserContext(), &req)
	if err != nil {
		return searchError(ctx, err)
	}
	if res.Outcome == string(state.OutcomeFailed) {
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.BaseResponse[*dto.SearchResponse]{
			Success: false,
			Code:    fiber.StatusBadGateway,
			Message: res.Summary,
			Data:    res,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Search finished", res))
}

// Stream answers with server-sent events: one "status" event per stage, then a "result" or
// "error" event.
func (c *searchController) Stream(ctx *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, _ = c.service.Stream(runCtx, &req, func(ev dto.StreamEvent) {
			if runCtx.Err() != nil {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				c.logger.Info("HTTP", "Stream client went away", map[string]interface{}{"error": err.Error()})
				cancel()
			}
		})
	})
	return nil
}

func writeEvent(w *bufio.Writer, ev dto.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *searchController) ServeWs(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			internalWS.ServeWs(c.service, conn, c.logger)
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}

func (c *searchController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return searchError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", res))
}

func (c *searchController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return searchError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func searchError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSearchTimeout):
		return ctx.Status(fiber.StatusGatewayTimeout).JSON(serverutils.ErrorResponse(504, err.Error()))
	case errors.Is(err, service.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}
