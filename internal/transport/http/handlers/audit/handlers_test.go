package audithandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/auth"
	"backoffice/internal/transport/http/middleware"
)

type fakeReader struct {
	filter         audit.Filter
	limit, offset  int
	includeDetails bool
	events         []audit.Event
}

func (f *fakeReader) Count(_ context.Context, _ string, _ audit.Filter) (int, error) {
	return len(f.events), nil
}

func (f *fakeReader) List(_ context.Context, _ string, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error) {
	f.filter, f.includeDetails, f.limit, f.offset = filter, includeDetails, limit, offset
	return f.events, nil
}

func TestListEvents(t *testing.T) {
	reader := &fakeReader{events: []audit.Event{{ID: "ev-1", Action: "payroll.mark_paid"}}}
	h := NewHandler(reader, auth.NewStaticPermissions(), zaptest.NewLogger(t))
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/audit/events?action=payroll.mark_paid&entityId=rec-1&limit=1000&offset=5&includeDetails=true", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: auth.RoleAuditor}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, audit.Filter{Action: "payroll.mark_paid", EntityID: "rec-1"}, reader.filter)
	assert.True(t, reader.includeDetails)
	assert.Equal(t, 500, reader.limit)
	assert.Equal(t, 5, reader.offset)

	var env struct {
		Data []audit.Event `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "ev-1", env.Data[0].ID)
}

func TestListEventsRequiresAuditPermission(t *testing.T) {
	h := NewHandler(&fakeReader{}, auth.NewStaticPermissions(), zaptest.NewLogger(t))
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/audit/events", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: auth.RoleAccountant}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListEventsRejectsBadPagination(t *testing.T) {
	reader := &fakeReader{}
	h := NewHandler(reader, auth.NewStaticPermissions(), zaptest.NewLogger(t))
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/audit/events?limit=abc&offset=-1", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: auth.RoleAuditor}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit"`)
	assert.Contains(t, rec.Body.String(), `"offset"`)
	assert.Zero(t, reader.limit)
}
