package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/pkg/serverutils"
	"solar-parcel-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearch struct {
	res *dto.SearchResponse
	err error
	got *dto.SearchRequest
}

func (s *stubSearch) Search(_ context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	s.got = req
	return s.res, s.err
}

func (s *stubSearch) Stream(_ context.Context, req *dto.SearchRequest, emit func(dto.StreamEvent)) (*dto.SearchResponse, error) {
	s.got = req
	emit(dto.StreamEvent{Type: dto.StreamEventStatus, Step: "Checking topic relevance", Node: "topic_filter"})
	if s.err != nil {
		emit(dto.StreamEvent{Type: dto.StreamEventError, Error: s.err.Error()})
		return s.res, s.err
	}
	emit(dto.StreamEvent{Type: dto.StreamEventResult, SearchResponse: s.res})
	return s.res, nil
}

func (s *stubSearch) GetSession(_ context.Context, id string) (*dto.SessionResponse, error) {
	if id != "known" {
		return nil, service.ErrSessionNotFound
	}
	return &dto.SessionResponse{SessionId: id, TurnCount: 2}, nil
}

func (s *stubSearch) DeleteSession(_ context.Context, id string) error {
	if id != "known" {
		return service.ErrSessionNotFound
	}
	return nil
}

type stubSchema struct{ refreshable bool }

func (s stubSchema) Describe(context.Context) (*dto.SchemaResponse, error) {
	return &dto.SchemaResponse{Schemas: []string{"parcels"}, Text: "Table: parcels.parcels"}, nil
}

func (s stubSchema) Refresh() bool { return s.refreshable }

func newApp(t *testing.T, search service.ISearchService) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewSearchController(search, logger.NewNopLogger()).RegisterRoutes(app)
	NewSchemaController(stubSchema{refreshable: true}, "secret").RegisterRoutes(app)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, int((5 * time.Second).Milliseconds()))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) serverutils.BaseResponse[T] {
	t.Helper()
	defer resp.Body.Close()
	var out serverutils.BaseResponse[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSearch_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		stub   *stubSearch
		body   string
		status int
	}{
		{
			name:   "completed",
			stub:   &stubSearch{res: &dto.SearchResponse{Outcome: "completed", Summary: "Found 1 parcel"}},
			body:   `{"query":"parcels in Franklin"}`,
			status: fiber.StatusOK,
		},
		{
			name:   "off topic is still a successful call",
			stub:   &stubSearch{res: &dto.SearchResponse{Outcome: "off_topic"}},
			body:   `{"query":"weather?"}`,
			status: fiber.StatusOK,
		},
		{
			name:   "failed run",
			stub:   &stubSearch{res: &dto.SearchResponse{Outcome: "failed", Summary: "sql generation failed"}},
			body:   `{"query":"parcels"}`,
			status: fiber.StatusBadGateway,
		},
		{
			name:   "timeout",
			stub:   &stubSearch{res: &dto.SearchResponse{Outcome: "failed"}, err: service.ErrSearchTimeout},
			body:   `{"query":"parcels"}`,
			status: fiber.StatusGatewayTimeout,
		},
		{
			name:   "unexpected error",
			stub:   &stubSearch{err: errors.New("load session: boom")},
			body:   `{"query":"parcels"}`,
			status: fiber.StatusInternalServerError,
		},
		{
			name:   "missing query",
			stub:   &stubSearch{},
			body:   `{"session_id":"abc"}`,
			status: fiber.StatusBadRequest,
		},
		{
			name:   "malformed body",
			stub:   &stubSearch{},
			body:   `{"query":`,
			status: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, newApp(t, tt.stub), "/search", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestSearch_PassesSession(t *testing.T) {
	stub := &stubSearch{res: &dto.SearchResponse{Outcome: "completed", SessionId: "s-1"}}
	resp := postJSON(t, newApp(t, stub), "/search", `{"query":"parcels in Franklin","session_id":"s-1"}`)

	body := decode[dto.SearchResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "s-1", body.Data.SessionId)
	require.NotNil(t, stub.got)
	assert.Equal(t, "s-1", stub.got.SessionId)
}

func TestStream_EmitsServerSentEvents(t *testing.T) {
	stub := &stubSearch{res: &dto.SearchResponse{Outcome: "completed", Summary: "Found 2 parcels"}}
	resp := postJSON(t, newApp(t, stub), "/search/stream", `{"query":"parcels in Franklin"}`)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var events []dto.StreamEvent
	for _, chunk := range strings.Split(strings.TrimSpace(string(raw)), "\n\n") {
		require.True(t, strings.HasPrefix(chunk, "data: "), chunk)
		var ev dto.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &ev))
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, dto.StreamEventStatus, events[0].Type)
	assert.Equal(t, "topic_filter", events[0].Node)
	assert.Equal(t, dto.StreamEventResult, events[1].Type)
	require.NotNil(t, events[1].SearchResponse)
	assert.Equal(t, "Found 2 parcels", events[1].Summary)
}

func TestStream_ErrorEvent(t *testing.T) {
	stub := &stubSearch{err: service.ErrSearchTimeout}
	resp := postJSON(t, newApp(t, stub), "/search/stream", `{"query":"parcels"}`)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"error"`)
	assert.Contains(t, string(raw), service.ErrSearchTimeout.Error())
}

func TestSessions(t *testing.T) {
	app := newApp(t, &stubSearch{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions/known", nil))
	require.NoError(t, err)
	body := decode[dto.SessionResponse](t, resp)
	assert.Equal(t, 2, body.Data.TurnCount)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/sessions/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/sessions/known", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	resp, err := newApp(t, &stubSearch{}).Test(httptest.NewRequest(http.MethodGet, "/search/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	resp.Body.Close()
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func TestSchema(t *testing.T) {
	app := newApp(t, &stubSearch{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/schema", nil))
	require.NoError(t, err)
	body := decode[dto.SchemaResponse](t, resp)
	assert.Equal(t, []string{"parcels"}, body.Data.Schemas)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/schema/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, "/schema/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "viewer"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodPost, "/schema/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "admin"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		database Pinger
		memory   Pinger
		status   int
		want     dto.HealthResponse
	}{
		{"all up", up, up, fiber.StatusOK, dto.HealthResponse{Status: "ok", Database: "up", Memory: "up"}},
		{"memory disabled", up, nil, fiber.StatusOK, dto.HealthResponse{Status: "ok", Database: "up", Memory: "disabled"}},
		{"database down", down, up, fiber.StatusServiceUnavailable, dto.HealthResponse{Status: "degraded", Database: "down", Memory: "up"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthController(tt.database, tt.memory).RegisterRoutes(app)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[dto.HealthResponse](t, resp)
			assert.Equal(t, tt.want, body.Data)
		})
	}
}
