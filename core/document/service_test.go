package document_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/document"
	logsvc "github.com/darasahq/darasa/services/logger"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

type fakeStore struct {
	chunks []core.DocChunk
}

func (s *fakeStore) Add(ctx context.Context, chunks ...core.DocChunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *fakeStore) Search(ctx context.Context, query string, scopes []string, limit int) ([]core.DocChunk, error) {
	return nil, nil
}

func (s *fakeStore) DeleteWhere(ctx context.Context, key, value string) error {
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.Metadata[key] != value {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

func (s *fakeStore) IndexedSources(ctx context.Context, scope string) (map[string]string, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeExtractor struct{}

func (fakeExtractor) Supports(contentType string) bool {
	return strings.HasPrefix(contentType, "text/")
}

func (fakeExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	return string(data), nil
}

func setup(t *testing.T) (document.Service, *fakeStore) {
	t.Helper()
	conf := &core.Config{MaxUploadSize: 1 << 10}
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	db := inmemdb.NewDB()
	store := &fakeStore{}
	svc := document.NewService(inmemdb.NewDocumentRepository(db), store, fakeExtractor{}, conf, logger)
	return svc, store
}

func Test_service_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported content type", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Upload(ctx, "usr1", "pic.png", "image/png", strings.NewReader("binary"))
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.Fields[0].Error != document.ErrUnsupportedType.Error() {
			t.Errorf("field error = %q", vErr.Fields[0].Error)
		}
	})

	t.Run("too large", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Upload(ctx, "usr1", "big.txt", "text/plain", strings.NewReader(strings.Repeat("a", 2<<10)))
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.Fields[0].Error != document.ErrTooLarge.Error() {
			t.Errorf("field error = %q", vErr.Fields[0].Error)
		}
	})

	t.Run("indexed", func(t *testing.T) {
		svc, store := setup(t)
		doc, err := svc.Upload(ctx, "usr1", "notes.txt", "text/plain", strings.NewReader("photosynthesis turns light into sugar"))
		if err != nil {
			t.Fatal(err)
		}
		if doc.Status != document.StatusIndexed {
			t.Errorf("Status = %q; want %q", doc.Status, document.StatusIndexed)
		}
		if doc.ChunkCount != 1 {
			t.Errorf("ChunkCount = %d; want 1", doc.ChunkCount)
		}
		if len(store.chunks) != 1 {
			t.Fatalf("store has %d chunks; want 1", len(store.chunks))
		}
		if got := store.chunks[0].Metadata["user_id"]; got != "usr1" {
			t.Errorf("chunk user_id = %v", got)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		svc, _ := setup(t)
		if _, err := svc.Upload(ctx, "usr1", "notes.txt", "text/plain", strings.NewReader("same content")); err != nil {
			t.Fatal(err)
		}
		_, err := svc.Upload(ctx, "usr1", "notes-copy.txt", "text/plain", strings.NewReader("same content"))
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.Fields[0].Error != document.ErrDuplicate.Error() {
			t.Errorf("field error = %q", vErr.Fields[0].Error)
		}
	})

	t.Run("same content from another owner is fine", func(t *testing.T) {
		svc, _ := setup(t)
		if _, err := svc.Upload(ctx, "usr1", "notes.txt", "text/plain", strings.NewReader("same content")); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Upload(ctx, "usr2", "notes.txt", "text/plain", strings.NewReader("same content")); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("empty document keeps the row as failed", func(t *testing.T) {
		svc, _ := setup(t)
		doc, err := svc.Upload(ctx, "usr1", "empty.txt", "text/plain", strings.NewReader(""))
		if err != nil {
			t.Fatal(err)
		}
		if doc.Status != document.StatusFailed {
			t.Errorf("Status = %q; want %q", doc.Status, document.StatusFailed)
		}
		if doc.Error == "" {
			t.Error("Error is empty")
		}
	})
}

func Test_service_Delete(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)

	doc, err := svc.Upload(ctx, "usr1", "notes.txt", "text/plain", strings.NewReader("photosynthesis turns light into sugar"))
	if err != nil {
		t.Fatal(err)
	}
	keep, err := svc.Upload(ctx, "usr1", "other.txt", "text/plain", strings.NewReader("mitochondria is the powerhouse"))
	if err != nil {
		t.Fatal(err)
	}

	if err = svc.Delete(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if _, err = svc.GetByID(ctx, doc.ID); err == nil {
		t.Error("document still retrievable after delete")
	}
	for _, c := range store.chunks {
		if c.Metadata["document_id"] == doc.ID {
			t.Errorf("chunk %s survived delete", c.ID)
		}
	}
	if _, err = svc.GetByID(ctx, keep.ID); err != nil {
		t.Errorf("unrelated document gone: %v", err)
	}
}

func Test_Split(t *testing.T) {
	doc := document.Document{ID: "doc1", OwnerID: "usr1", Name: "notes.txt", Hash: "abc"}

	chunks, err := document.Split(doc, strings.Repeat("lorem ipsum dolor sit amet. ", 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks; want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if want := fmt.Sprintf("doc1_%d", i); c.ID != want {
			t.Errorf("chunk ID = %q; want %q", c.ID, want)
		}
		if c.Metadata["user_id"] != "usr1" || c.Metadata["document_id"] != "doc1" {
			t.Errorf("chunk %d metadata = %v", i, c.Metadata)
		}
		if c.Metadata["source"] != "notes.txt" || c.Metadata["hash"] != "abc" {
			t.Errorf("chunk %d metadata = %v", i, c.Metadata)
		}
		if c.Metadata["chunk_num"] != i {
			t.Errorf("chunk %d chunk_num = %v", i, c.Metadata["chunk_num"])
		}
	}
}
