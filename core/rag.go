package core

import "context"

// LibraryScope is the owner scope shared course materials are indexed under.
// Retrieval for any user always includes this scope next to their own ID.
const LibraryScope = "library"

// CatalogScope is the owner scope the course catalogue is indexed under.
const CatalogScope = "course_catalog"

type (
	// DocChunk is a piece of text stored in (or retrieved from) the vector index.
	DocChunk struct {
		ID       string                 `json:"id"`
		Text     string                 `json:"text"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}

	// Embedder turns text into an embedding vector.
	Embedder interface {
		Embed(ctx context.Context, text string) ([]float32, error)
	}

	// VectorStore is the similarity index over document chunks. Implementations
	// embed query text themselves; scopes filter on the chunks' owner metadata.
	VectorStore interface {
		Add(ctx context.Context, chunks ...DocChunk) error
		Search(ctx context.Context, query string, scopes []string, limit int) ([]DocChunk, error)
		DeleteWhere(ctx context.Context, key, value string) error
		// IndexedSources maps each "source" metadata value within a scope to its
		// recorded content hash. Used for change detection when re-indexing.
		IndexedSources(ctx context.Context, scope string) (map[string]string, error)
	}
)
