package records_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/internal/records"
	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/pagination"
)

type mockSystem struct {
	listFn        func(ctx context.Context, page pagination.PageRequest, filters records.Filters) (*pagination.PageResult[records.Record], error)
	findFn        func(ctx context.Context, id uuid.UUID) (*records.Record, error)
	createBatchFn func(ctx context.Context, batchID uuid.UUID, outcomes []pipeline.Outcome) ([]records.Record, error)
	restoreFn     func(ctx context.Context, id uuid.UUID, cmd records.RestoreCommand) (*records.Record, error)
	eventsFn      func(ctx context.Context, id uuid.UUID) ([]records.Event, error)
}

func (m *mockSystem) Handler() *records.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters records.Filters) (*pagination.PageResult[records.Record], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*records.Record, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) CreateBatch(ctx context.Context, batchID uuid.UUID, outcomes []pipeline.Outcome) ([]records.Record, error) {
	return m.createBatchFn(ctx, batchID, outcomes)
}

func (m *mockSystem) Restore(ctx context.Context, id uuid.UUID, cmd records.RestoreCommand) (*records.Record, error) {
	return m.restoreFn(ctx, id, cmd)
}

func (m *mockSystem) Events(ctx context.Context, id uuid.UUID) ([]records.Event, error) {
	return m.eventsFn(ctx, id)
}

func newTestHandler(sys records.System) *records.Handler {
	return records.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *records.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleRecord() records.Record {
	now := time.Now().Truncate(time.Second)
	return records.Record{
		ID:          uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		BatchID:     uuid.MustParse("660e8400-e29b-41d4-a716-446655440000"),
		ChunkID:     "chunk-1",
		SessionID:   "session-1",
		SourceType:  pipeline.SourceEmail,
		SourceRef:   "thread-42",
		RawText:     "The system must support exporting reports as CSV.",
		CleanedText: "The system must support exporting reports as CSV.",
		Label:       pipeline.LabelRequirement,
		Confidence:  0.91,
		Rationale:   "States a mandatory export capability.",
		Path:        pipeline.PathSemantic,
		CreatedAt:   now,
	}
}

func TestHandlerList(t *testing.T) {
	rec := sampleRecord()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, _ records.Filters) (*pagination.PageResult[records.Record], error) {
			result := pagination.NewPageResult([]records.Record{rec}, 1, 1, 20)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	t.Run("returns paginated list", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records", nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var result pagination.PageResult[records.Record]
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}
		if len(result.Data) != 1 {
			t.Fatalf("data length = %d, want 1", len(result.Data))
		}
		if result.Data[0].ID != rec.ID {
			t.Errorf("id = %v, want %v", result.Data[0].ID, rec.ID)
		}
	})

	t.Run("passes view filter", func(t *testing.T) {
		var captured records.Filters
		sys.listFn = func(_ context.Context, _ pagination.PageRequest, f records.Filters) (*pagination.PageResult[records.Record], error) {
			captured = f
			result := pagination.NewPageResult([]records.Record{}, 0, 1, 20)
			return &result, nil
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records?view=noise&label=noise", nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if captured.View != records.ViewNoise {
			t.Errorf("View = %q, want %q", captured.View, records.ViewNoise)
		}
		if captured.Label == nil || *captured.Label != "noise" {
			t.Errorf("Label = %v, want noise", captured.Label)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	rec := sampleRecord()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*records.Record, error) {
			if id != rec.ID {
				return nil, records.ErrNotFound
			}
			return &rec, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	t.Run("returns record", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records/"+rec.ID.String(), nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var got records.Record
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ChunkID != rec.ChunkID {
			t.Errorf("chunk_id = %q, want %q", got.ChunkID, rec.ChunkID)
		}
		if got.Rationale != rec.Rationale {
			t.Errorf("reasoning = %q, want %q", got.Rationale, rec.Rationale)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records/"+uuid.NewString(), nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records/not-a-uuid", nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestHandlerRestore(t *testing.T) {
	rec := sampleRecord()
	rec.Label = pipeline.LabelNoise
	rec.Suppressed = false
	rec.ManuallyRestored = true

	t.Run("restores suppressed record", func(t *testing.T) {
		var captured records.RestoreCommand
		sys := &mockSystem{
			restoreFn: func(_ context.Context, id uuid.UUID, cmd records.RestoreCommand) (*records.Record, error) {
				captured = cmd
				return &rec, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(records.RestoreCommand{RestoredBy: "dana", Note: "actually a decision"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/records/"+rec.ID.String()+"/restore", bytes.NewReader(body))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if captured.RestoredBy != "dana" {
			t.Errorf("restored_by = %q, want dana", captured.RestoredBy)
		}

		var got records.Record
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Suppressed {
			t.Error("Suppressed = true, want false after restore")
		}
		if !got.ManuallyRestored {
			t.Error("ManuallyRestored = false, want true after restore")
		}
	})

	t.Run("restoring an active record conflicts", func(t *testing.T) {
		sys := &mockSystem{
			restoreFn: func(_ context.Context, _ uuid.UUID, _ records.RestoreCommand) (*records.Record, error) {
				return nil, records.ErrNotSuppressed
			},
		}
		mux := setupMux(newTestHandler(sys))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/records/"+rec.ID.String()+"/restore", bytes.NewReader([]byte(`{"restored_by":"dana"}`)))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		sys := &mockSystem{
			restoreFn: func(_ context.Context, _ uuid.UUID, _ records.RestoreCommand) (*records.Record, error) {
				t.Fatal("restore called with malformed body")
				return nil, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/records/"+rec.ID.String()+"/restore", bytes.NewReader([]byte("{")))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestHandlerEvents(t *testing.T) {
	rec := sampleRecord()
	events := []records.Event{
		{
			ID:        uuid.New(),
			RecordID:  rec.ID,
			Action:    "restored",
			Actor:     "dana",
			Detail:    "actually a decision",
			CreatedAt: time.Now().Truncate(time.Second),
		},
	}

	sys := &mockSystem{
		eventsFn: func(_ context.Context, id uuid.UUID) ([]records.Event, error) {
			if id != rec.ID {
				return nil, records.ErrNotFound
			}
			return events, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("returns audit trail", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records/"+rec.ID.String()+"/events", nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var got []records.Event
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("events length = %d, want 1", len(got))
		}
		if got[0].Action != "restored" {
			t.Errorf("action = %q, want restored", got[0].Action)
		}
	})

	t.Run("unknown record returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/records/"+uuid.NewString()+"/events", nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestHandlerSearch(t *testing.T) {
	rec := sampleRecord()
	var captured records.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f records.Filters) (*pagination.PageResult[records.Record], error) {
			captured = f
			result := pagination.NewPageResult([]records.Record{rec}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := []byte(`{"page": 1, "page_size": 20, "label": "requirement", "view": "signals"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/records/search", bytes.NewReader(body))
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if captured.Label == nil || *captured.Label != "requirement" {
		t.Errorf("Label = %v, want requirement", captured.Label)
	}
	if captured.View != records.ViewSignals {
		t.Errorf("View = %q, want %q", captured.View, records.ViewSignals)
	}
}
