package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func testApp(t *testing.T) *Application {
	t.Helper()
	catalog.Clear()
	cfg := &config.Config{
		Env:     "test",
		Server:  config.ServerConfig{Port: 0},
		Tenant:  config.TenantConfig{DefaultTeamID: "demo"},
		Store:   config.StoreConfig{Dir: t.TempDir(), LockTimeout: 2 * time.Second},
		Catalog: config.CatalogConfig{Dir: t.TempDir()},
		Workflow: config.WorkflowConfig{
			NonsenseConfidence:   0.5,
			IntakeConfidence:     0.85,
			AcceptanceConfidence: 0.7,
			MaxCounterRounds:     3,
			MaxDateAttempts:      3,
			MaxStepIterations:    6,
			TimePromptRounds:     2,
			DefaultWindowStart:   "14:00",
			DefaultWindowEnd:     "18:00",
		},
		Offer:     config.OfferConfig{Currency: "EUR", DepositRate: 0.3, DepositDueDays: 14, OptionHoldDays: 7},
		SiteVisit: config.SiteVisitConfig{Weekdays: []string{"Mon", "Tue", "Wed", "Thu", "Fri"}, Hours: []int{10, 14, 16}},
		Dates:     config.DatesConfig{HorizonMinDays: 45, HorizonMaxDays: 180, DefaultSlotStart: "18:00", DefaultSlotEnd: "22:00"},
		Worker:    config.WorkerConfig{GeneralPoolSize: 4, ExternalPoolSize: 2},
	}

	a, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func TestBootstrapServesHealth(t *testing.T) {
	a := testApp(t)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouterRunsAFullTurn(t *testing.T) {
	a := testApp(t)

	body := `{"from_email":"client@example.com","email_body":"Book May 15 2026 14:00-18:00 for 25 guests."}`
	req := httptest.NewRequest(http.MethodPost, "/api/start-conversation", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "event_id")
	assert.Contains(t, w.Body.String(), "draft_messages")
}

func TestRouterRejectsBadInput(t *testing.T) {
	a := testApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/start-conversation", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterEventNotFound(t *testing.T) {
	a := testApp(t)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "EVENT_NOT_FOUND")
}
