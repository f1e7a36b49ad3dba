package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/idler/internal/aggregator"
	"github.com/yairfalse/idler/internal/plugin"
	"github.com/yairfalse/idler/pkg/resource"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeInventory struct {
	inv       resource.Inventory
	listErr   error
	deleteErr error
	panicWith any

	deletedID   string
	deletedHint string
}

func (f *fakeInventory) List(context.Context) (resource.Inventory, error) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.inv, f.listErr
}

func (f *fakeInventory) Delete(_ context.Context, id, hint string) (string, error) {
	f.deletedID = id
	f.deletedHint = hint
	if f.deleteErr != nil {
		return "", f.deleteErr
	}
	return fmt.Sprintf("Resource %s deleted successfully", id), nil
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleInventory() resource.Inventory {
	launched := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return resource.Inventory{
		Resources: []resource.Resource{
			{
				ID: "i-1", Type: resource.TypeCompute, Name: "web", Region: "us-east-1",
				State: "stopped", LastUsed: launched,
				Details: resource.ComputeDetails{InstanceType: "t3.micro"},
			},
			{
				ID: "vol-1", Type: resource.TypeVolume, Name: "vol-1", Region: "us-east-1",
				State:   "available",
				Details: resource.VolumeDetails{VolumeSize: 8, VolumeType: "gp3"},
			},
		},
	}
}

func TestList_OK(t *testing.T) {
	s := New(":0", &fakeInventory{inv: sampleInventory()}, Info{}, nil)

	rec := do(t, s, http.MethodGet, "/resources")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := decode(t, rec)
	assert.NotContains(t, body, "warnings")
	items, ok := body["resources"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	assert.Equal(t, "i-1", first["id"])
	assert.Equal(t, "COMPUTE", first["type"])
	assert.Equal(t, "2024-01-02T03:04:05Z", first["lastUsed"])
	assert.Equal(t, float64(0), first["cost"])
	assert.Equal(t, map[string]any{"instanceType": "t3.micro"}, first["details"])
}

func TestList_EmptyIsArray(t *testing.T) {
	s := New(":0", &fakeInventory{}, Info{}, nil)

	rec := do(t, s, http.MethodGet, "/resources")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"resources":[]}`, rec.Body.String())
}

func TestList_Warnings(t *testing.T) {
	inv := sampleInventory()
	inv.Warnings = []resource.Warning{{Type: resource.TypeManagedDB, Error: "access denied"}}
	s := New(":0", &fakeInventory{inv: inv}, Info{}, nil)

	body := decode(t, do(t, s, http.MethodGet, "/resources"))

	assert.Equal(t, []any{map[string]any{"type": "MANAGED_DB", "error": "access denied"}}, body["warnings"])
}

func TestList_Error(t *testing.T) {
	err := fmt.Errorf("%w: list VOLUME: throttled", aggregator.ErrUpstreamProvider)
	s := New(":0", &fakeInventory{listErr: err}, Info{}, nil)

	rec := do(t, s, http.MethodGet, "/resources")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, err.Error(), decode(t, rec)["error"])
}

func TestDelete_OK(t *testing.T) {
	inv := &fakeInventory{}
	s := New(":0", inv, Info{}, nil)

	rec := do(t, s, http.MethodDelete, "/resources/vol-1?type=volume")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Resource vol-1 deleted successfully", decode(t, rec)["message"])
	assert.Equal(t, "vol-1", inv.deletedID)
	assert.Equal(t, "volume", inv.deletedHint)
}

func TestDelete_MissingID(t *testing.T) {
	for _, target := range []string{"/resources", "/resources/", "/resources/%20"} {
		t.Run(target, func(t *testing.T) {
			inv := &fakeInventory{}
			s := New(":0", inv, Info{}, nil)

			rec := do(t, s, http.MethodDelete, target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec), "error")
			assert.Empty(t, inv.deletedID)
		})
	}
}

func TestDelete_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"client input", fmt.Errorf("%w: unknown resource type", aggregator.ErrClientInput), http.StatusBadRequest},
		{"provider", fmt.Errorf("%w: delete", aggregator.ErrUpstreamProvider), http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", &fakeInventory{deleteErr: tt.err}, Info{}, nil)

			rec := do(t, s, http.MethodDelete, "/resources/i-1")

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.err.Error(), decode(t, rec)["error"])
		})
	}
}

func TestOptions(t *testing.T) {
	s := New(":0", &fakeInventory{}, Info{}, nil)

	for _, target := range []string{"/resources", "/resources/i-1", "/anything"} {
		rec := do(t, s, http.MethodOptions, target)

		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, rec.Body.String(), target)
		assert.Equal(t, "GET, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(":0", &fakeInventory{}, Info{}, nil)

	for _, tt := range []struct{ method, target string }{
		{http.MethodPost, "/resources"},
		{http.MethodPut, "/resources/i-1"},
		{http.MethodPatch, "/resources"},
	} {
		rec := do(t, s, tt.method, tt.target)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"error", errors.New("nil map"), "nil map"},
		{"string", "bad state", "bad state"},
		{"empty error", errors.New(""), "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", &fakeInventory{panicWith: tt.value}, Info{}, nil)

			rec := do(t, s, http.MethodGet, "/resources")

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}
}

func TestHealthz(t *testing.T) {
	s := New(":0", &fakeInventory{}, Info{Region: "eu-west-1", Account: "123456789012"}, nil)

	rec := do(t, s, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "eu-west-1", body["region"])
	assert.Equal(t, "123456789012", body["account"])
	assert.Contains(t, body, "uptime_seconds")
}

func TestMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("idler_query_errors_total 0\n"))
	})
	s := New(":0", &fakeInventory{}, Info{}, metrics)

	rec := do(t, s, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "idler_query_errors_total")
}

func TestNotFound(t *testing.T) {
	s := New(":0", &fakeInventory{}, Info{}, nil)

	rec := do(t, s, http.MethodGet, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubPlugin struct{}

func (stubPlugin) Name() string            { return "stub" }
func (stubPlugin) Region() string          { return "us-east-1" }
func (stubPlugin) Queries() []plugin.Query { return nil }
func (stubPlugin) Delete(context.Context, resource.Type, string) error {
	return nil
}

func TestReadyz(t *testing.T) {
	plugin.Clear()
	defer plugin.Clear()
	s := New(":0", &fakeInventory{}, Info{}, nil)

	rec := do(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no plugins registered", decode(t, rec)["error"])

	plugin.Register(stubPlugin{})
	rec = do(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyz_ConfiguredProvider(t *testing.T) {
	plugin.Clear()
	defer plugin.Clear()
	plugin.Register(stubPlugin{})

	s := New(":0", &fakeInventory{}, Info{Provider: "aws"}, nil)
	rec := do(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "plugin aws not registered", decode(t, rec)["error"])

	s = New(":0", &fakeInventory{}, Info{Provider: "stub"}, nil)
	rec = do(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	s := New(":0", &fakeInventory{}, Info{}, nil)

	rec := do(t, s, http.MethodGet, "/resources")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
