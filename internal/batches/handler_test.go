package batches_test

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

	"github.com/winnowhq/winnow/internal/batches"
	"github.com/winnowhq/winnow/internal/records"
	"github.com/winnowhq/winnow/pkg/pagination"
)

type mockSystem struct {
	listFn   func(ctx context.Context, page pagination.PageRequest, filters batches.Filters) (*pagination.PageResult[batches.Batch], error)
	findFn   func(ctx context.Context, id uuid.UUID) (*batches.Batch, error)
	ingestFn func(ctx context.Context, cmd batches.IngestCommand) (*batches.IngestResult, error)
}

func (m *mockSystem) Handler() *batches.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters batches.Filters) (*pagination.PageResult[batches.Batch], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*batches.Batch, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Ingest(ctx context.Context, cmd batches.IngestCommand) (*batches.IngestResult, error) {
	return m.ingestFn(ctx, cmd)
}

func newTestHandler(sys batches.System) *batches.Handler {
	return batches.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *batches.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleBatch() batches.Batch {
	now := time.Now().Truncate(time.Second)
	return batches.Batch{
		ID:           uuid.MustParse("770e8400-e29b-41d4-a716-446655440000"),
		SessionID:    "session-1",
		SourceType:   "email",
		Status:       batches.StatusComplete,
		StorageKey:   "batches/770e8400-e29b-41d4-a716-446655440000/payload.json",
		Received:     10,
		Stored:       8,
		Suppressed:   3,
		Flagged:      2,
		Rejected:     1,
		Deduplicated: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestHandlerIngest(t *testing.T) {
	b := sampleBatch()

	t.Run("returns 201 with result", func(t *testing.T) {
		var captured batches.IngestCommand
		sys := &mockSystem{
			ingestFn: func(_ context.Context, cmd batches.IngestCommand) (*batches.IngestResult, error) {
				captured = cmd
				return &batches.IngestResult{Batch: b}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body := []byte(`{
			"session_id": "session-1",
			"source_type": "email",
			"chunks": [
				{"chunk_id": "c1", "raw_text": "The system must support CSV export."}
			]
		}`)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/batches", bytes.NewReader(body))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", w.Code)
		}
		if captured.SessionID != "session-1" {
			t.Errorf("session_id = %q, want session-1", captured.SessionID)
		}
		if len(captured.Chunks) != 1 {
			t.Fatalf("chunks length = %d, want 1", len(captured.Chunks))
		}

		var result batches.IngestResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Batch.ID != b.ID {
			t.Errorf("batch id = %v, want %v", result.Batch.ID, b.ID)
		}
	})

	t.Run("empty batch returns 400", func(t *testing.T) {
		sys := &mockSystem{
			ingestFn: func(_ context.Context, _ batches.IngestCommand) (*batches.IngestResult, error) {
				return nil, batches.ErrEmptyBatch
			},
		}
		mux := setupMux(newTestHandler(sys))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/batches", bytes.NewReader([]byte(`{"chunks": []}`)))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("store exhaustion returns 502", func(t *testing.T) {
		sys := &mockSystem{
			ingestFn: func(_ context.Context, _ batches.IngestCommand) (*batches.IngestResult, error) {
				return nil, records.ErrPersistExhausted
			},
		}
		mux := setupMux(newTestHandler(sys))

		body := []byte(`{"chunks": [{"chunk_id": "c1", "raw_text": "text"}]}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/batches", bytes.NewReader(body))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", w.Code)
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		sys := &mockSystem{
			ingestFn: func(_ context.Context, _ batches.IngestCommand) (*batches.IngestResult, error) {
				t.Fatal("ingest called with malformed body")
				return nil, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/batches", bytes.NewReader([]byte("not json")))
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	b := sampleBatch()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*batches.Batch, error) {
			if id != b.ID {
				return nil, batches.ErrNotFound
			}
			return &b, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("returns batch summary", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/batches/"+b.ID.String(), nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var got batches.Batch
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Stored != b.Stored {
			t.Errorf("stored = %d, want %d", got.Stored, b.Stored)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/batches/"+uuid.NewString(), nil)
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestHandlerList(t *testing.T) {
	b := sampleBatch()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, _ batches.Filters) (*pagination.PageResult[batches.Batch], error) {
			result := pagination.NewPageResult([]batches.Batch{b}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/batches?status=complete", nil)
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result pagination.PageResult[batches.Batch]
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}
}
