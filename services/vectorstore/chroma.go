package vectorstore

import (
	"context"
	"encoding/json"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// ChromaStore implements core.VectorStore on a ChromaDB collection. Chunks are
// embedded with the injected core.Embedder on both write and query.
type ChromaStore struct {
	client     chromago.Client
	collection chromago.Collection
	embedder   core.Embedder
}

var _ core.VectorStore = (*ChromaStore)(nil)

func NewChromaStore(ctx context.Context, conf *core.Config, embedder core.Embedder) (*ChromaStore, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(conf.ChromaURL))
	if err != nil {
		return nil, errors.Wrap(err, "creating chroma client")
	}
	collection, err := client.GetOrCreateCollection(ctx, conf.ChromaCollection)
	if err != nil {
		return nil, errors.Wrap(err, "getting chroma collection")
	}
	return &ChromaStore{
		client:     client,
		collection: collection,
		embedder:   embedder,
	}, nil
}

func (s *ChromaStore) Close() error {
	return s.client.Close()
}

func (s *ChromaStore) Add(ctx context.Context, chunks ...core.DocChunk) error {
	for _, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return errors.Wrapf(err, "embedding chunk %s", chunk.ID)
		}
		err = s.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunk.ID)),
			chromago.WithTexts(chunk.Text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
			chromago.WithMetadatas(toMetadata(chunk.Metadata)),
		)
		if err != nil {
			return errors.Wrapf(err, "adding chunk %s", chunk.ID)
		}
	}
	return nil
}

func (s *ChromaStore) Search(ctx context.Context, query string, scopes []string, limit int) ([]core.DocChunk, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embedding query")
	}

	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(limit),
	}
	if where := scopeFilter(scopes); where != nil {
		opts = append(opts, chromago.WithWhereQuery(where))
	}

	results, err := s.collection.Query(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "querying chroma")
	}

	var chunks []core.DocChunk
	idGroups := results.GetIDGroups()
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return chunks, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		chunk := core.DocChunk{Text: doc.ContentString()}
		if len(idGroups) > 0 && i < len(idGroups[0]) {
			chunk.ID = string(idGroups[0][i])
		}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			chunk.Metadata = toMap(metadataGroups[0][i])
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *ChromaStore) DeleteWhere(ctx context.Context, key, value string) error {
	return s.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(key, value)))
}

func (s *ChromaStore) IndexedSources(ctx context.Context, scope string) (map[string]string, error) {
	results, err := s.collection.Get(ctx, chromago.WithWhereGet(chromago.EqString("user_id", scope)))
	if err != nil {
		return nil, errors.Wrap(err, "getting indexed sources")
	}

	sources := make(map[string]string)
	for _, meta := range results.GetMetadatas() {
		metaMap := toMap(meta)
		source, ok := metaMap["source"].(string)
		if !ok {
			continue
		}
		hash, ok := metaMap["hash"].(string)
		if !ok {
			continue
		}
		if _, exists := sources[source]; !exists {
			sources[source] = hash
		}
	}
	return sources, nil
}

func scopeFilter(scopes []string) chromago.WhereFilter {
	switch len(scopes) {
	case 0:
		return nil
	case 1:
		return chromago.EqString("user_id", scopes[0])
	default:
		clauses := make([]chromago.WhereClause, 0, len(scopes))
		for _, scope := range scopes {
			clauses = append(clauses, chromago.EqString("user_id", scope))
		}
		return chromago.Or(clauses...)
	}
}

func toMetadata(m map[string]interface{}) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(m))
	for key, val := range m {
		switch v := val.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(key, v))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(key, int64(v)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(key, v))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(key, v))
		case bool:
			attrs = append(attrs, chromago.NewBoolAttribute(key, v))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

// toMap converts chroma metadata to a plain map. DocumentMetadata exposes no
// accessor for all values; round-tripping through JSON is the supported way.
func toMap(meta chromago.DocumentMetadata) map[string]interface{} {
	if meta == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	var metaMap map[string]interface{}
	if err = json.Unmarshal(jsonBytes, &metaMap); err != nil {
		return nil
	}
	return metaMap
}
