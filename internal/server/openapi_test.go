package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleOpenAPI(t *testing.T) {
	h := handleOpenAPI()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("content-type = %q, want application/json", got)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"openapi": "3.`) {
		t.Fatalf("body missing openapi version")
	}
	for _, op := range operations {
		if !strings.Contains(body, `"`+op.path+`"`) {
			t.Errorf("body missing %s", op.path)
		}
	}
}

func TestSwaggerUI(t *testing.T) {
	e := setupEnv(t)
	w := e.do(t, http.MethodGet, "/docs/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); !strings.Contains(got, "text/html") {
		t.Fatalf("content-type = %q, want text/html", got)
	}
	if !strings.Contains(w.Body.String(), "/openapi.json") {
		t.Fatalf("body missing /openapi.json")
	}
}
