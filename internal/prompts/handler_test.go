package prompts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"jobtracker-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	if err := Seed(context.Background(), repo, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	r := gin.New()
	api := r.Group("/api/v1", middleware.RequestID(), middleware.Owner())
	NewHandler(NewService(repo)).RegisterRoutes(api)
	return r
}

func doJSON(r http.Handler, method, path, owner string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-User-Id", owner)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateUpdateHistory(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/v1/prompt-templates", "user-1", NewTemplate{TaskType: TaskCoverLetter, RoleType: "formal", Name: "Mine", PromptText: "Dear {{COMPANY}}"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Template
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(r, http.MethodPut, "/api/v1/prompt-templates/"+created.ID, "user-1", TemplateUpdate{PromptText: "Hello {{COMPANY}}"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodGet, "/api/v1/prompt-templates/"+created.ID+"/history", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var history []Template
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 2 || history[0].Version != 2 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestHandlerErrors(t *testing.T) {
	r := newTestRouter(t)

	if rec := doJSON(r, http.MethodPost, "/api/v1/prompt-templates", "user-1", NewTemplate{TaskType: "email", PromptText: "x"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodGet, "/api/v1/prompt-templates/missing", "user-1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodGet, "/api/v1/prompt-templates", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec := doJSON(r, http.MethodGet, "/api/v1/prompt-templates?taskType=cover_letter", "user-1", nil)
	var list []Template
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) == 0 {
		t.Fatalf("expected system templates listed, err=%v body=%s", err, rec.Body.String())
	}
	if rec := doJSON(r, http.MethodPut, "/api/v1/prompt-templates/"+list[0].ID, "user-1", TemplateUpdate{PromptText: "x"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for system template, got %d", rec.Code)
	}
}

func TestHandlerUpdateForeignTemplateIsNotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/v1/prompt-templates", "user-1", NewTemplate{TaskType: TaskResumeTailor, PromptText: "mine"})
	var created Template
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := "/api/v1/prompt-templates/" + created.ID
	if rec := doJSON(r, http.MethodGet, path, "user-2", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on get, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodPut, path, "user-2", TemplateUpdate{PromptText: "x"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on update, got %d", rec.Code)
	}
}
