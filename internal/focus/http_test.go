package focus

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tanushreec24/Streaker/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *sql.DB) {
	t.Helper()
	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Now().UTC()
	if _, err := db.Exec(`INSERT INTO profiles (id, email, timezone, created_at, updated_at)
		VALUES ('user_f1', 'f1@example.com', 'UTC', ?, ?)`, now, now); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	h := NewHandler(NewSQLiteRepo(db).ForUser("user_f1"))
	return h, db
}

func do(t *testing.T, h *Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.SessionsRoot(w, req)
	return w
}

func TestFocus_LogAndList(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, http.MethodPost, "/api/focus/sessions", map[string]any{"minutes": 25})
	if w.Code != 201 {
		t.Fatalf("log: expected 201, got %d: %s", w.Code, w.Body)
	}
	var created Session
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if created.Minutes != 25 || created.ID == "" {
		t.Fatalf("unexpected session: %+v", created)
	}
	if created.StartedAt.IsZero() {
		t.Fatalf("expected startedAt to default")
	}

	w = do(t, h, http.MethodGet, "/api/focus/sessions", nil)
	if w.Code != 200 {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var sessions []Session
	if err := json.Unmarshal(w.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != created.ID {
		t.Fatalf("expected the logged session back, got %+v", sessions)
	}
}

func TestFocus_RejectsInvalidMinutes(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, minutes := range []int{0, -5, 2000} {
		w := do(t, h, http.MethodPost, "/api/focus/sessions", map[string]any{"minutes": minutes})
		if w.Code != 400 {
			t.Fatalf("minutes=%d: expected 400, got %d", minutes, w.Code)
		}
	}
}

func TestFocus_TotalMinutes(t *testing.T) {
	h, db := newTestHandler(t)

	for _, minutes := range []int{25, 50} {
		if w := do(t, h, http.MethodPost, "/api/focus/sessions", map[string]any{"minutes": minutes}); w.Code != 201 {
			t.Fatalf("log: expected 201, got %d", w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.Total(w, httptest.NewRequest(http.MethodGet, "/api/focus/sessions/total", nil))
	if w.Code != 200 {
		t.Fatalf("total: expected 200, got %d: %s", w.Code, w.Body)
	}
	var out struct {
		TotalMinutes int `json:"totalMinutes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode total: %v", err)
	}
	if out.TotalMinutes != 75 {
		t.Fatalf("expected 75 total minutes, got %d", out.TotalMinutes)
	}

	w = httptest.NewRecorder()
	h.Total(w, httptest.NewRequest(http.MethodGet, "/api/focus/sessions/total?since=not-a-time", nil))
	if w.Code != 400 {
		t.Fatalf("bad since should be 400, got %d", w.Code)
	}

	// Other users never see these rows.
	other, err := NewSQLiteRepo(db).ForUser("user_other").TotalMinutes(time.Time{})
	if err != nil {
		t.Fatalf("total minutes: %v", err)
	}
	if other != 0 {
		t.Fatalf("expected 0 minutes for other user, got %d", other)
	}
}
