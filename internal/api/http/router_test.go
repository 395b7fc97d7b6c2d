package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/api/http/handlers"
	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/ingestion"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/persistence"
	"github.com/spec-kit/ticket-router/internal/repository/memory"
	"github.com/spec-kit/ticket-router/internal/service"
)

type stubPoller struct {
	result ingestion.PollResult
	calls  int
}

func (s *stubPoller) Poll(context.Context) (ingestion.PollResult, error) {
	s.calls++
	return s.result, nil
}

func strPtr(v string) *string { return &v }

func newTestApp(t *testing.T, store *memory.Store, poller handlers.Poller) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	assignment := service.NewAssignmentService(service.AssignmentDependencies{AgentRepo: store, Logger: logger, Metrics: metrics})
	routing := service.NewRoutingService(service.RoutingDependencies{
		CatalogRepo: store,
		UnitRepo:    store,
		SLAResolver: service.NewSLAResolver(store),
		Assignment:  assignment,
		Logger:      logger,
		Metrics:     metrics,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store,
		CommentRepo: store.Comments(),
		HistoryRepo: store.History(),
		Routing:     routing,
		Dispatcher:  events.NewInMemoryDispatcher(logger),
		Logger:      logger,
	})
	directory := service.NewOrgEmailDirectory(store)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("ticket-router", "test", &persistence.Postgres{}, nil),
		Tickets:  handlers.NewTicketsHandler(tickets, "org"),
		OrgUnits: handlers.NewOrgUnitsHandler(directory, "org"),
		Routing:  handlers.NewRoutingHandler(poller),
		Gatherer: registry,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCreateTicketAndComment(t *testing.T) {
	store := memory.NewStore()
	deptID := store.AddUnit(domain.OrgUnit{OrgID: "org", Kind: domain.UnitKindDepartment, Name: "IT", IsActive: true})
	app := newTestApp(t, store, nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/tickets",
		`{"title":"VPN down","department_id":"`+deptID+`","urgency":"HIGH","impact":"HIGH"}`)
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]any)
	number := data["number"].(string)
	require.True(t, strings.HasPrefix(number, "TCK-"))
	require.Equal(t, "org", data["org_id"])
	require.Equal(t, deptID, data["department_id"])
	require.Equal(t, string(domain.TicketPriorityHigh), data["priority"])

	status, body = doJSON(t, app, nethttp.MethodPost, "/api/v1/tickets/"+strings.ToLower(number)+"/comments",
		`{"author_email":"Jane@Acme.test","body":"still broken"}`)
	require.Equal(t, fiber.StatusCreated, status)
	comment := body["data"].(map[string]any)
	require.Equal(t, "still broken", comment["body"])
	require.Equal(t, "jane@acme.test", comment["author_email"])
}

func TestCreateTicketValidationError(t *testing.T) {
	app := newTestApp(t, memory.NewStore(), nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/tickets", `{"title":"  "}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
}

func TestCommentOnUnknownTicket(t *testing.T) {
	app := newTestApp(t, memory.NewStore(), nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/tickets/TCK-00000000/comments", `{"body":"hello"}`)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestOrgUnitEmailEndpoints(t *testing.T) {
	store := memory.NewStore()
	deptID := store.AddUnit(domain.OrgUnit{OrgID: "org", Kind: domain.UnitKindDepartment, Name: "IT", Email: strPtr("it@acme.test"), IsActive: true})
	app := newTestApp(t, store, nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/org-units/email/validate", `{"email":"IT@acme.test"}`)
	require.Equal(t, fiber.StatusOK, status)
	result := body["data"].(map[string]any)
	require.Equal(t, false, result["valid"])
	require.Equal(t, string(domain.UnitKindDepartment), result["conflict_kind"])
	require.Equal(t, deptID, result["conflict_id"])

	status, body = doJSON(t, app, nethttp.MethodPost, "/api/v1/org-units/email/validate",
		`{"email":"it@acme.test","exclude_kind":"department","exclude_id":"`+deptID+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, true, body["data"].(map[string]any)["valid"])

	status, _ = doJSON(t, app, nethttp.MethodPost, "/api/v1/org-units/email/validate", `{"email":"not an email"}`)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, app, nethttp.MethodGet, "/api/v1/org-units/email/resolve?email=it@acme.test", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "IT", body["data"].(map[string]any)["name"])

	status, _ = doJSON(t, app, nethttp.MethodGet, "/api/v1/org-units/email/resolve?email=nobody@acme.test", "")
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestPriorityEndpoint(t *testing.T) {
	app := newTestApp(t, memory.NewStore(), nil)

	status, body := doJSON(t, app, nethttp.MethodGet, "/api/v1/priority?urgency=critical&impact=medium", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, string(domain.TicketPriorityHigh), body["data"].(map[string]any)["priority"])

	status, _ = doJSON(t, app, nethttp.MethodGet, "/api/v1/priority?urgency=urgent&impact=low", "")
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestIngestionPollEndpoint(t *testing.T) {
	status, body := doJSON(t, newTestApp(t, memory.NewStore(), nil), nethttp.MethodPost, "/api/v1/ingestion/poll", "")
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	require.Equal(t, "UNAVAILABLE", body["error"].(map[string]any)["code"])

	poller := &stubPoller{result: ingestion.PollResult{Fetched: 2, Created: 1, Appended: 1}}
	status, body = doJSON(t, newTestApp(t, memory.NewStore(), poller), nethttp.MethodPost, "/api/v1/ingestion/poll", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, 1, poller.calls)
	require.EqualValues(t, 2, body["data"].(map[string]any)["fetched"])

	poller = &stubPoller{result: ingestion.PollResult{Skipped: true}}
	status, _ = doJSON(t, newTestApp(t, memory.NewStore(), poller), nethttp.MethodPost, "/api/v1/ingestion/poll", "")
	require.Equal(t, fiber.StatusAccepted, status)
}

func TestHealthReportsDisabledDependencies(t *testing.T) {
	app := newTestApp(t, memory.NewStore(), nil)

	status, body := doJSON(t, app, nethttp.MethodGet, "/health/ready", "")
	require.Equal(t, fiber.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	require.Equal(t, "disabled", deps["postgres"])
	require.Equal(t, "disabled", deps["redis"])

	status, _ = doJSON(t, app, nethttp.MethodGet, "/health/live", "")
	require.Equal(t, fiber.StatusOK, status)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, memory.NewStore(), nil)
	doJSON(t, app, nethttp.MethodGet, "/api/v1/priority?urgency=low&impact=low", "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "http_requests_total")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	app := newTestApp(t, memory.NewStore(), nil)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/nope", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body["error"]["code"])
}
