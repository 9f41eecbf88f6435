package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestResponseHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	lg := zerolog.New(&logs)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-7")
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "no such actor") })
	r.GET("/broken", func(c *gin.Context) { fail(c, http.StatusBadGateway, ErrCodeResolveFailed, "upstream gone") })
	r.POST("/made", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"nickname": "alice"}) })
	r.DELETE("/gone", func(c *gin.Context) { noContent(c) })

	cases := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/missing", http.StatusNotFound, `{"request_id":"rid-7","code":"not_found","message":"no such actor"}`},
		{http.MethodGet, "/broken", http.StatusBadGateway, `{"request_id":"rid-7","code":"resolve_failed","message":"upstream gone"}`},
		{http.MethodPost, "/made", http.StatusCreated, `{"nickname":"alice"}`},
		{http.MethodDelete, "/gone", http.StatusNoContent, ``},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.status || strings.TrimSpace(w.Body.String()) != tc.body {
			t.Fatalf("%s %s = %d %s", tc.method, tc.path, w.Code, w.Body.String())
		}
	}

	// only the 5xx was logged
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"level":"error"`) || !strings.Contains(lines[0], "upstream gone") {
		t.Fatalf("logs = %q", logs.String())
	}
}

func TestDocument_MediaType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/.well-known/webfinger", func(c *gin.Context) {
		document(c, http.StatusOK, ContentTypeJRD, map[string]any{"subject": "acct:alice@example.com"})
	})
	r.GET("/bad", func(c *gin.Context) {
		document(c, http.StatusOK, ContentTypeActivity, map[string]any{"bad": make(chan int)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/webfinger", nil))
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJRD+"; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["subject"] != "acct:alice@example.com" {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unencodable body status = %d", w.Code)
	}
}
