package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type ticketBody struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	CompanyName string `json:"company_name"`
	ServiceType string `json:"service_type"`
	AssignedTo  *int64 `json:"assigned_to"`
	Files       []struct {
		ID           int64  `json:"id"`
		OriginalName string `json:"original_name"`
		DownloadURL  string `json:"download_url"`
	} `json:"files"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.NewStore()
	_, err := service.NewSeedService(store, bcrypt.MinCost, logger, nil).Run(ctx)
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	attachments := service.NewAttachmentService(service.AttachmentDependencies{
		Store:      store,
		Blobs:      storage.NewDiskStore(t.TempDir()),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Attachments: attachments,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assignments := service.NewAssignmentService(service.AssignmentDependencies{Store: store, Dispatcher: dispatcher, Logger: logger})
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5}, service.AuthDependencies{
		UserRepo: store.Repositories().Users,
		Logger:   logger,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets),
		StaffTickets:   handlers.NewStaffTicketsHandler(tickets, assignments),
		Files:          handlers.NewTicketFilesHandler(attachments),
		Catalog:        handlers.NewCatalogHandler(service.NewCatalogService(store)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Repositories().Users, authService.Denylist()),
		Metrics:        metrics,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, envelope) {
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
	return send(t, app, req, token)
}

func send(t *testing.T, app *fiber.App, req *http.Request, token string) (*http.Response, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && resp.Header.Get(fiber.HeaderContentType) == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp, env := do(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.NotEmpty(t, body.Auth.Token)
	return body.Auth.Token
}

func firstServiceType(t *testing.T, app *fiber.App, token string) int64 {
	t.Helper()
	resp, env := do(t, app, http.MethodGet, "/api/service-types", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var types []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &types))
	require.NotEmpty(t, types)
	return types[0].ID
}

func decodeTicket(t *testing.T, env envelope) ticketBody {
	t.Helper()
	var ticket ticketBody
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	return ticket
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorEnvelope(t *testing.T) {
	app := newTestApp(t)

	resp, env := do(t, app, http.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	resp, env = do(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@aurum.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid credentials", env.Error.Message)

	token := login(t, app, "maria@aurum.com", "usuario123")
	resp, env = do(t, app, http.MethodGet, "/api/tickets/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	resp, env = do(t, app, http.MethodGet, "/api/tickets/999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	userToken := login(t, app, "maria@aurum.com", "usuario123")
	techToken := login(t, app, "joao@aurum.com", "tecnico123")
	serviceTypeID := firstServiceType(t, app, userToken)

	resp, env := do(t, app, http.MethodPost, "/api/tickets", userToken, map[string]any{
		"title":           "Printer offline",
		"description":     "The second floor printer stopped responding",
		"service_type_id": serviceTypeID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeTicket(t, env)
	assert.Equal(t, "aberto", created.Status)
	assert.Equal(t, "media", created.Priority)
	assert.Equal(t, "TechCorp Ltda", created.CompanyName)
	ticketPath := fmt.Sprintf("/api/tickets/%d", created.ID)

	resp, _ = do(t, app, http.MethodGet, "/api/companies", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = do(t, app, http.MethodPost, ticketPath+"/close", userToken, map[string]string{"message": "done"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "PERMISSION_DENIED", env.Error.Code)

	resp, env = do(t, app, http.MethodGet, "/api/auth/me", techToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tech struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tech))

	resp, env = do(t, app, http.MethodPost, ticketPath+"/assign", techToken, map[string]any{"assigned_to": tech.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assigned := decodeTicket(t, env)
	assert.Equal(t, "em_andamento", assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, tech.ID, *assigned.AssignedTo)

	resp, _ = do(t, app, http.MethodPost, ticketPath+"/responses", techToken, map[string]any{"message": "checking cables", "is_internal": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = do(t, app, http.MethodPost, ticketPath+"/close", techToken, map[string]string{"message": "replaced cable"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fechado", decodeTicket(t, env).Status)

	resp, env = do(t, app, http.MethodGet, ticketPath+"/responses", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var responses []struct {
		Message    string `json:"message"`
		IsInternal bool   `json:"is_internal"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &responses))
	require.Len(t, responses, 1)
	assert.Equal(t, "Ticket closed: replaced cable", responses[0].Message)

	resp, env = do(t, app, http.MethodGet, "/api/tickets/stats", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats["total"])
	assert.Equal(t, int64(1), stats["fechado"])

	resp, env = do(t, app, http.MethodGet, ticketPath+"/history", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.NotEmpty(t, history)
}

func TestMultipartCreateAndDownload(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "maria@aurum.com", "usuario123")
	serviceTypeID := firstServiceType(t, app, token)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("title", "VPN access"))
	require.NoError(t, writer.WriteField("description", "Cannot connect from home"))
	require.NoError(t, writer.WriteField("service_type_id", fmt.Sprint(serviceTypeID)))
	require.NoError(t, writer.WriteField("priority", "alta"))
	part, err := writer.CreateFormFile("files", "vpn log.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("connection refused"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tickets", &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	resp, env := send(t, app, req, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ticket := decodeTicket(t, env)
	assert.Equal(t, "alta", ticket.Priority)
	require.Len(t, ticket.Files, 1)
	assert.Equal(t, "vpn_log.txt", ticket.Files[0].OriginalName)

	req = httptest.NewRequest(http.MethodGet, ticket.Files[0].DownloadURL, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "vpn_log.txt")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "connection refused", string(body))

	resp, _ = do(t, app, http.MethodDelete, ticket.Files[0].DownloadURL, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "admin@aurum.com", "admin123")

	resp, _ := do(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, env := do(t, app, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "token revoked", env.Error.Message)
}

func TestListPaginationTreatsPageZeroAsFirstPage(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "maria@aurum.com", "usuario123")
	serviceTypeID := firstServiceType(t, app, token)

	resp, _ := do(t, app, http.MethodPost, "/api/tickets", token, map[string]any{
		"title":           "Monitor flickers",
		"description":     "Second screen flickers",
		"service_type_id": serviceTypeID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, query := range []string{"page=0&page_size=10", "page=-3&page_size=10", "page=1&page_size=10"} {
		resp, env := do(t, app, http.MethodGet, "/api/tickets?"+query, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, query)
		var items []ticketBody
		require.NoError(t, json.Unmarshal(env.Data, &items))
		assert.Len(t, items, 1, query)
	}
}
