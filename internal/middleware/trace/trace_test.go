package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	applog "gastos/internal/log"
)

func TestMiddlewareLogsAndPropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf, Component: applog.ComponentApp})

	var seen string
	r := chi.NewRouter()
	r.Use(NewMiddleware(logger).Middleware)
	r.Get("/api/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/expenses/9", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id %q should be generated", seen)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("%s header = %q, want %q", RequestIDHeader, got, seen)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"HTTP request completed"`, `"route":"/api/expenses/{id}"`, `"status_code":404`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b {
		t.Errorf("request ids should differ: %s", a)
	}
}
