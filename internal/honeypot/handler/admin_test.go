package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/honeypot/internal/honeypot/handler"
	"github.com/jmerrifield20/honeypot/internal/interaction"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"go.uber.org/zap"
)

type stubStream struct{ called bool }

func (s *stubStream) ServeWS(w http.ResponseWriter, _ *http.Request) {
	s.called = true
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func setupAdminRouter(t *testing.T, svc engageSvc, stream *stubStream) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var h *handler.AdminHandler
	if stream != nil {
		h = handler.NewAdminHandler(svc, threat.NewKeywordScorer(), stream, testKey, zap.NewNop())
	} else {
		h = handler.NewAdminHandler(svc, threat.NewKeywordScorer(), nil, testKey, zap.NewNop())
	}

	r := gin.New()
	r.GET("/", handler.Liveness)
	r.GET("/healthz", handler.Healthz)
	h.Register(&r.RouterGroup)
	return r
}

func adminGet(router *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLiveness(t *testing.T) {
	svc, _ := newTestService()
	router := setupAdminRouter(t, svc, nil)

	w := adminGet(router, "/", "")
	if w.Code != http.StatusOK || w.Body.String() != "Honeypot API is running" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}

	w = adminGet(router, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("healthz: got %d %q", w.Code, w.Body.String())
	}
}

func TestAdminLogs_200_insertionOrder(t *testing.T) {
	svc, _ := newTestService()
	for _, text := range []string{"first otp", "second", "third lottery"} {
		if _, err := svc.Engage(context.Background(), "198.51.100.7", text); err != nil {
			t.Fatal(err)
		}
	}
	router := setupAdminRouter(t, svc, nil)

	w := adminGet(router, "/admin/logs", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Status string               `json:"status"`
		Count  int                  `json:"count"`
		Logs   []interaction.Record `json:"logs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 || len(resp.Logs) != 3 {
		t.Fatalf("count = %d, logs = %d", resp.Count, len(resp.Logs))
	}
	if resp.Logs[0].Text != "first otp" || resp.Logs[2].Text != "third lottery" {
		t.Errorf("wrong order: %+v", resp.Logs)
	}
	if resp.Logs[0].RemoteAddr != "198.51.100.7" || resp.Logs[0].RiskScore != 30 {
		t.Errorf("first record = %+v", resp.Logs[0])
	}
}

func TestAdminLogs_emptyIsArray(t *testing.T) {
	svc, _ := newTestService()
	router := setupAdminRouter(t, svc, nil)

	w := adminGet(router, "/admin/logs", testKey)
	if !strings.Contains(w.Body.String(), `"logs":[]`) {
		t.Errorf("empty log should encode as []: %s", w.Body.String())
	}
}

func TestAdmin_401(t *testing.T) {
	svc, _ := newTestService()
	router := setupAdminRouter(t, svc, &stubStream{})

	for _, path := range []string{"/admin/logs", "/admin/config", "/admin/stream"} {
		for _, key := range []string{"", "wrong"} {
			w := adminGet(router, path, key)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s key=%q: expected 401, got %d", path, key, w.Code)
			}
		}
	}
}

func TestAdminConfig_200(t *testing.T) {
	svc, _ := newTestService()
	router := setupAdminRouter(t, svc, nil)

	w := adminGet(router, "/admin/config", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Keywords        []threat.Keyword `json:"keywords"`
		Thresholds      map[string]int   `json:"thresholds"`
		ReplyCategories []struct {
			Name    string   `json:"name"`
			Replies []string `json:"replies"`
		} `json:"reply_categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Keywords) == 0 || resp.Keywords[0].Term != "otp" {
		t.Errorf("keywords = %+v", resp.Keywords)
	}
	if resp.Thresholds["HIGH"] != 70 || resp.Thresholds["MEDIUM"] != 40 || resp.Thresholds["LOW"] != 1 {
		t.Errorf("thresholds = %v", resp.Thresholds)
	}
	if len(resp.ReplyCategories) != 6 {
		t.Errorf("reply categories = %d, want 6", len(resp.ReplyCategories))
	}
}

func TestAdminStream_routedWhenConfigured(t *testing.T) {
	svc, _ := newTestService()

	stream := &stubStream{}
	router := setupAdminRouter(t, svc, stream)
	adminGet(router, "/admin/stream", testKey)
	if !stream.called {
		t.Error("stream handler not invoked")
	}

	router = setupAdminRouter(t, svc, nil)
	if w := adminGet(router, "/admin/stream", testKey); w.Code != http.StatusNotFound {
		t.Errorf("without stream: expected 404, got %d", w.Code)
	}
}
