package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/pgvector/pgvector-go"

	"github.com/zamanbank/assistant/internal/log"
)

// ============================================================================
// Mocks
// ============================================================================

type mockEmbedder struct {
	embedErr    error
	returnEmpty bool
	callCount   int
	lastInput   string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInput = req.Input[0].Content[0].Text
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}}}, nil
}

type upsertCall struct {
	id       string
	content  string
	metadata []byte
}

type mockQuerier struct {
	upserts   []upsertCall
	searchRet []Row
	upsertErr error
	searchErr error
	deleted   []string
	count     int64
}

func (m *mockQuerier) UpsertDocument(_ context.Context, id, content string, _ pgvector.Vector, metadata []byte, _ time.Time) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, upsertCall{id: id, content: content, metadata: metadata})
	return nil
}

func (m *mockQuerier) SearchDocuments(_ context.Context, _ pgvector.Vector, _ []byte, limit int32) ([]Row, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	rows := m.searchRet
	if int32(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *mockQuerier) CountDocuments(context.Context, []byte) (int64, error) {
	return m.count, nil
}

func (m *mockQuerier) DeleteDocument(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func row(id, content string, similarity float32) Row {
	meta, _ := json.Marshal(map[string]string{"topic": "deposits"})
	return Row{ID: id, Content: content, Metadata: meta, CreatedAt: time.Now(), Similarity: similarity}
}

// ============================================================================
// Store
// ============================================================================

func TestStoreAdd(t *testing.T) {
	q := &mockQuerier{}
	store := NewStore(q, &mockEmbedder{}, log.NewNop())

	doc := Document{
		ID:       "faq:test",
		Content:  "содержимое",
		Metadata: map[string]string{"topic": "test"},
	}
	if err := store.Add(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if len(q.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(q.upserts))
	}
	if q.upserts[0].id != "faq:test" {
		t.Errorf("id = %q", q.upserts[0].id)
	}
	var meta map[string]string
	if err := json.Unmarshal(q.upserts[0].metadata, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["topic"] != "test" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestStoreAddEmbedderFailure(t *testing.T) {
	store := NewStore(&mockQuerier{}, &mockEmbedder{embedErr: errors.New("quota")}, log.NewNop())
	if err := store.Add(context.Background(), Document{ID: "x", Content: "y"}); err == nil {
		t.Error("expected error from failing embedder")
	}
}

func TestStoreAddEmptyEmbedding(t *testing.T) {
	store := NewStore(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, log.NewNop())
	if err := store.Add(context.Background(), Document{ID: "x", Content: "y"}); err == nil {
		t.Error("expected error on empty embedding")
	}
}

func TestStoreSearch(t *testing.T) {
	q := &mockQuerier{searchRet: []Row{
		row("a", "первый", 0.9),
		row("b", "второй", 0.7),
	}}
	emb := &mockEmbedder{}
	store := NewStore(q, emb, log.NewNop())

	results, err := store.Search(context.Background(), "вопрос", WithTopK(5))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Document.ID != "a" || results[0].Similarity != 0.9 {
		t.Errorf("first result = %+v", results[0])
	}
	if results[0].Document.Metadata["topic"] != "deposits" {
		t.Errorf("metadata not decoded: %v", results[0].Document.Metadata)
	}
	if emb.lastInput != "вопрос" {
		t.Errorf("embedded text = %q", emb.lastInput)
	}
}

func TestStoreSearchTopK(t *testing.T) {
	q := &mockQuerier{searchRet: []Row{
		row("a", "1", 0.9), row("b", "2", 0.8), row("c", "3", 0.7),
	}}
	store := NewStore(q, &mockEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "q", WithTopK(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want topK=2", len(results))
	}
}

func TestStoreCountAndDelete(t *testing.T) {
	q := &mockQuerier{count: 6}
	store := NewStore(q, &mockEmbedder{}, log.NewNop())

	n, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("count = %d, want 6", n)
	}

	if err := store.Delete(context.Background(), "faq:old"); err != nil {
		t.Fatal(err)
	}
	if len(q.deleted) != 1 || q.deleted[0] != "faq:old" {
		t.Errorf("deleted = %v", q.deleted)
	}
}
