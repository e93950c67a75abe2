package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/document"
)

type documentRepository struct {
	db *sqlx.DB
}

var _ document.Repository = (*documentRepository)(nil)

func NewDocumentRepository(db *sqlx.DB) document.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	q := `INSERT INTO document (id, owner_id, name, content_type, size, hash, status, error, chunk_count, created_at, updated_at)
		VALUES (:id, :owner_id, :name, :content_type, :size, :hash, :status, :error, :chunk_count, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, docToRow(doc)); err != nil {
		return document.Document{}, errors.Wrap(err, "creating document")
	}
	return doc, nil
}

func (repo *documentRepository) getDocument(ctx context.Context, where string, args ...interface{}) (document.Document, error) {
	var row documentRow
	q := `SELECT * FROM document WHERE ` + where
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return document.Document{}, document.ErrNotFound
		}
		return document.Document{}, errors.Wrap(err, "getting document")
	}
	return row.toDocument(), nil
}

func (repo *documentRepository) GetDocumentByID(ctx context.Context, id string) (document.Document, error) {
	return repo.getDocument(ctx, "id = $1", id)
}

func (repo *documentRepository) GetDocumentByOwnerAndHash(ctx context.Context, ownerID, hash string) (document.Document, error) {
	return repo.getDocument(ctx, "owner_id = $1 AND hash = $2", ownerID, hash)
}

func (repo *documentRepository) FilterDocuments(ctx context.Context, ownerID string, ordering ...core.DBOrdering) ([]document.Document, error) {
	q := `SELECT * FROM document WHERE owner_id = $1` + orderingClause(ordering, "created_at DESC")
	var rows []documentRow
	if err := repo.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, errors.Wrap(err, "filtering documents")
	}
	docs := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDocument())
	}
	return docs, nil
}

func (repo *documentRepository) UpdateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	q := `UPDATE document SET status = :status, error = :error, chunk_count = :chunk_count, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, docToRow(doc))
	if err != nil {
		return document.Document{}, errors.Wrap(err, "updating document")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.Document{}, document.ErrNotFound
	}
	return doc, nil
}

func (repo *documentRepository) DeleteDocumentsByID(ctx context.Context, ids ...string) error {
	q := `DELETE FROM document WHERE id = ANY($1)`
	if _, err := repo.db.ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting documents")
	}
	return nil
}

type documentRow struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Name        string    `db:"name"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	Hash        string    `db:"hash"`
	Status      string    `db:"status"`
	Error       string    `db:"error"`
	ChunkCount  int       `db:"chunk_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func docToRow(doc document.Document) documentRow {
	return documentRow(doc)
}

func (row documentRow) toDocument() document.Document {
	return document.Document(row)
}
