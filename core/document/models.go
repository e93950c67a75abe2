package document

import (
	"time"
)

// Document statuses
const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

type (
	// Document is an uploaded study material owned by a single user. Its
	// extracted text lives in the vector store; the row tracks indexing state.
	Document struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"owner_id"`
		Name        string    `json:"name"`
		ContentType string    `json:"content_type"`
		Size        int64     `json:"size"`
		Hash        string    `json:"-"`
		Status      string    `json:"status"`
		Error       string    `json:"error,omitempty"`
		ChunkCount  int       `json:"chunk_count"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
)
