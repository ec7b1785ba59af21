package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/sla"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	agent  string
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("helpdesk_test")
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(logger)

	slaService := service.NewSLAService(service.SLADependencies{
		PolicyRepo: store.Policies(),
		TicketRepo: store.Tickets(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	_, err := slaService.SeedDefaults(context.Background())
	require.NoError(t, err)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets(),
		ReplyRepo:  store.Replies(),
		Resolver:   sla.NewResolver(store.Policies()),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	suggestionService := service.NewSuggestionService(service.SuggestionDependencies{
		TicketRepo:     store.Tickets(),
		ReplyRepo:      store.Replies(),
		SuggestionRepo: store.Suggestions(),
		Recorder:       metrics,
		Logger:         logger,
	})
	reportService := service.NewReportService(store.Tickets(), metrics, logger, nil)
	historyService := service.NewHistoryService(dispatcher, store.History(), store.Tickets(), logger)
	historyService.RegisterHandlers()

	tokens := auth.NewTokenManager("test-secret", "", 15)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", nil, nil),
		Tickets:        handlers.NewTicketsHandler(ticketService, historyService),
		SLA:            handlers.NewSLAHandler(slaService),
		Dashboard:      handlers.NewDashboardHandler(reportService),
		Suggestions:    handlers.NewSuggestionsHandler(suggestionService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	issue := func(id domain.Identity) string {
		token, _, err := tokens.Issue(id)
		require.NoError(t, err)
		return token
	}
	return &testServer{
		app:    app,
		tokens: tokens,
		agent:  issue(domain.Identity{UserID: "agent-1", Email: "agent@example.com", Role: domain.RoleAgent}),
		admin:  issue(domain.Identity{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}

func errorCode(payload map[string]any) string {
	envelope, _ := payload["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func data(payload map[string]any) map[string]any {
	d, _ := payload["data"].(map[string]any)
	return d
}

var newTicket = map[string]any{
	"subject":        "VPN drops",
	"description":    "Disconnects every 10 minutes",
	"priority":       "urgent",
	"category":       "bug",
	"customer_email": "pat@example.com",
}

func TestHealthEndpointsArePublic(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestAPIRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/tickets", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/tickets", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/tickets", s.agent, newTicket)
	require.Equal(t, fiber.StatusCreated, status, body)
	created := data(body)
	assert.Equal(t, "open", created["status"])
	assert.Equal(t, "on_track", created["sla_status"])
	assert.NotNil(t, created["sla_due"])
	assert.Equal(t, "agent-1", created["creator_id"])
	id := int64(created["id"].(float64))
	path := "/tickets/" + strconv.FormatInt(id, 10)

	status, body = s.do(t, fiber.MethodPost, path+"/replies", s.agent, map[string]any{"content": "Looking into it"})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "agent@example.com", data(body)["author"])

	status, body = s.do(t, fiber.MethodGet, path, s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, data(body)["replies"], 1)

	status, body = s.do(t, fiber.MethodPost, path+"/resolve", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "resolved", data(body)["status"])
	assert.Equal(t, "not_applicable", data(body)["sla_status"])
	assert.NotNil(t, data(body)["resolved_at"])

	status, body = s.do(t, fiber.MethodPost, path+"/close", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "closed", data(body)["status"])

	status, body = s.do(t, fiber.MethodGet, path+"/history", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	history := body["data"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "status_change", history[0].(map[string]any)["change_type"])
	assert.Equal(t, "closed", history[1].(map[string]any)["new_value"].(map[string]any)["status"])

	status, body = s.do(t, fiber.MethodGet, "/dashboard", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, data(body)["total"])
	assert.EqualValues(t, 1, data(body)["by_status"].(map[string]any)["closed"])
}

func TestUpdateTicketKeepsDeadline(t *testing.T) {
	s := newTestServer(t)

	_, body := s.do(t, fiber.MethodPost, "/tickets", s.agent, newTicket)
	created := data(body)
	path := "/tickets/" + strconv.FormatInt(int64(created["id"].(float64)), 10)

	status, body := s.do(t, fiber.MethodPut, path, s.agent, map[string]any{
		"subject":     "VPN drops",
		"description": "Disconnects every 10 minutes",
		"status":      "in_progress",
		"priority":    "low",
		"category":    "bug",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "low", data(body)["priority"])
	assert.Equal(t, created["sla_due"], data(body)["sla_due"])
}

func TestValidationAndNotFoundEnvelopes(t *testing.T) {
	s := newTestServer(t)

	bad := map[string]any{"subject": "x", "description": "y", "priority": "critical", "category": "bug", "customer_email": "a@b.c"}
	status, body := s.do(t, fiber.MethodPost, "/tickets", s.agent, bad)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/tickets?sort_by=subject", s.agent, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/tickets?status=open,archived", s.agent, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/tickets/999", s.agent, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/tickets/abc", s.agent, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestCreateTicketRequiresPriorityAndCategory(t *testing.T) {
	s := newTestServer(t)

	for _, field := range []string{"priority", "category"} {
		t.Run("missing "+field, func(t *testing.T) {
			req := map[string]any{}
			for k, v := range newTicket {
				req[k] = v
			}
			delete(req, field)

			status, body := s.do(t, fiber.MethodPost, "/tickets", s.agent, req)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
		})
	}

	status, body := s.do(t, fiber.MethodGet, "/dashboard", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, data(body)["total"])
}

func TestListTicketsFiltersAndSorts(t *testing.T) {
	s := newTestServer(t)

	for _, priority := range []string{"low", "urgent", "medium"} {
		req := map[string]any{}
		for k, v := range newTicket {
			req[k] = v
		}
		req["priority"] = priority
		status, _ := s.do(t, fiber.MethodPost, "/tickets", s.agent, req)
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := s.do(t, fiber.MethodGet, "/tickets?sort_by=priority", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, "urgent", items[0].(map[string]any)["priority"])
	assert.Equal(t, "low", items[2].(map[string]any)["priority"])

	status, body = s.do(t, fiber.MethodGet, "/tickets?priority=low,medium", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)
}

func TestPolicyWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	policy := map[string]any{"name": "VIP", "priority": "high", "response_hours": 1, "resolution_hours": 6}

	status, body := s.do(t, fiber.MethodPost, "/sla/policies", s.agent, policy)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = s.do(t, fiber.MethodPost, "/sla/policies", s.admin, policy)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, true, data(body)["is_active"])

	status, body = s.do(t, fiber.MethodPut, "/sla/policies/77", s.admin, policy)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/sla/policies", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 5)

	status, body = s.do(t, fiber.MethodGet, "/sla/breaches", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestSuggestionWithoutGenerator(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, fiber.MethodPost, "/tickets", s.agent, newTicket)
	id := data(body)["id"]

	status, body := s.do(t, fiber.MethodPost, "/suggestions", s.agent, map[string]any{"ticket_id": id, "suggestion_type": "summary"})
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "SUGGESTION_FAILED", errorCode(body))

	status, body = s.do(t, fiber.MethodPost, "/suggestions", s.agent, map[string]any{"ticket_id": id, "suggestion_type": "poem"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/suggestions?ticket_id=1", s.agent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodGet, "/health/live", "", nil)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "helpdesk_test_http_requests_total")
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))
}
