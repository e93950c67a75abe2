package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/darasahq/darasa/core"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

var (
	// errors
	ErrNotFound        = errors.New("document not found")
	ErrDuplicate       = errors.New("this document has already been uploaded")
	ErrTooLarge        = errors.New("document exceeds the maximum upload size")
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrEmptyDocument   = errors.New("no text could be extracted from this document")
)

type (
	Repository interface {
		CreateDocument(ctx context.Context, doc Document) (Document, error)
		GetDocumentByID(ctx context.Context, id string) (Document, error)
		GetDocumentByOwnerAndHash(ctx context.Context, ownerID, hash string) (Document, error)
		FilterDocuments(ctx context.Context, ownerID string, ordering ...core.DBOrdering) ([]Document, error)
		UpdateDocument(ctx context.Context, doc Document) (Document, error)
		DeleteDocumentsByID(ctx context.Context, ids ...string) error
	}

	// Extractor pulls plain text out of an uploaded file.
	Extractor interface {
		Supports(contentType string) bool
		Extract(ctx context.Context, data []byte, contentType string) (string, error)
	}

	Service interface {
		Upload(ctx context.Context, ownerID, name, contentType string, r io.Reader) (Document, error)
		Query(ctx context.Context, ownerID string) ([]Document, error)
		GetByID(ctx context.Context, id string) (Document, error)
		Delete(ctx context.Context, doc Document) error
	}

	service struct {
		repo      Repository
		store     core.VectorStore
		extractor Extractor
		conf      *core.Config
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, store core.VectorStore, extractor Extractor, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:      repo,
		store:     store,
		extractor: extractor,
		conf:      conf,
		logger:    logger,
	}
}

// Upload stores a new document and indexes its text for retrieval. The
// returned Document reflects the final indexing status; a failed extraction
// keeps the row with StatusFailed so the owner can see what went wrong.
func (svc *service) Upload(ctx context.Context, ownerID, name, contentType string, r io.Reader) (Document, error) {
	if !svc.extractor.Supports(contentType) {
		return Document{}, core.NewValidationError(ErrUnsupportedType, core.FieldError{Field: "file", Error: ErrUnsupportedType.Error()})
	}

	data, err := io.ReadAll(io.LimitReader(r, svc.conf.MaxUploadSize+1))
	if err != nil {
		return Document{}, errors.Wrap(err, "reading upload")
	}
	if int64(len(data)) > svc.conf.MaxUploadSize {
		return Document{}, core.NewValidationError(ErrTooLarge, core.FieldError{Field: "file", Error: ErrTooLarge.Error()})
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if _, err = svc.repo.GetDocumentByOwnerAndHash(ctx, ownerID, hash); err == nil {
		return Document{}, core.NewValidationError(ErrDuplicate, core.FieldError{Field: "file", Error: ErrDuplicate.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Document{}, err
	}

	now := time.Now().UTC()
	doc := Document{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        core.CleanString(name),
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        hash,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc, err = svc.repo.CreateDocument(ctx, doc)
	if err != nil {
		return Document{}, err
	}

	if doc, err = svc.index(ctx, doc, data); err != nil {
		doc.Status = StatusFailed
		doc.Error = err.Error()
		doc.UpdatedAt = time.Now().UTC()
		if doc, err = svc.repo.UpdateDocument(ctx, doc); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

func (svc *service) index(ctx context.Context, doc Document, data []byte) (Document, error) {
	text, err := svc.extractor.Extract(ctx, data, doc.ContentType)
	if err != nil {
		return doc, errors.Wrap(err, "extracting text")
	}
	chunks, err := Split(doc, text)
	if err != nil {
		return doc, err
	}
	if err = svc.store.Add(ctx, chunks...); err != nil {
		return doc, errors.Wrap(err, "indexing chunks")
	}

	doc.Status = StatusIndexed
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDocument(ctx, doc)
}

// Split breaks extracted text into overlapping chunks carrying the metadata
// retrieval filters on.
func Split(doc Document, text string) ([]core.DocChunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, errors.Wrap(err, "splitting text")
	}
	if len(parts) == 0 {
		return nil, ErrEmptyDocument
	}

	chunks := make([]core.DocChunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, core.DocChunk{
			ID:   fmt.Sprintf("%s_%d", doc.ID, i),
			Text: part,
			Metadata: map[string]interface{}{
				"user_id":     doc.OwnerID,
				"document_id": doc.ID,
				"source":      doc.Name,
				"hash":        doc.Hash,
				"chunk_num":   i,
				"uploaded_at": doc.CreatedAt.Format(time.RFC3339),
			},
		})
	}
	return chunks, nil
}

func (svc *service) Query(ctx context.Context, ownerID string) ([]Document, error) {
	return svc.repo.FilterDocuments(ctx, ownerID, core.DBOrdering{Field: "created_at"})
}

func (svc *service) GetByID(ctx context.Context, id string) (Document, error) {
	return svc.repo.GetDocumentByID(ctx, id)
}

// Delete removes the document row and all of its indexed chunks.
func (svc *service) Delete(ctx context.Context, doc Document) error {
	if err := svc.store.DeleteWhere(ctx, "document_id", doc.ID); err != nil {
		return errors.Wrap(err, "removing indexed chunks")
	}
	return svc.repo.DeleteDocumentsByID(ctx, doc.ID)
}
