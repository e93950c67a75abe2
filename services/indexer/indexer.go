package indexersvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/darasahq/darasa/core"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

var contentTypes = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
	".md":  "text/markdown",
}

type extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// LibraryIndexer keeps the shared materials directory in sync with the vector
// index. Indexed chunks carry the library scope so retrieval surfaces them for
// every user.
type LibraryIndexer struct {
	store     core.VectorStore
	extractor extractor
	dir       string
	logger    core.Logger
}

func NewLibraryIndexer(store core.VectorStore, ext extractor, conf *core.Config, logger core.Logger) *LibraryIndexer {
	return &LibraryIndexer{
		store:     store,
		extractor: ext,
		dir:       conf.MaterialsDir,
		logger:    logger,
	}
}

// Sync walks the materials directory and reconciles it with the index: new
// and changed files are (re-)indexed, files gone from disk are removed.
func (idx *LibraryIndexer) Sync(ctx context.Context) error {
	indexed, err := idx.store.IndexedSources(ctx, core.LibraryScope)
	if err != nil {
		return errors.Wrap(err, "getting index state")
	}

	onDisk := make(map[string]bool)
	err = filepath.Walk(idx.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		onDisk[path] = true

		hash, err := fileHash(path)
		if err != nil {
			idx.logger.Warn(fmt.Sprintf("indexer: hashing %s: %v", path, err))
			return nil
		}
		if indexed[path] == hash {
			return nil // unchanged
		}
		if err = idx.reindexFile(ctx, path, hash); err != nil {
			idx.logger.Error(fmt.Sprintf("indexer: indexing %s: %v", path, err), err)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", idx.dir)
	}

	for path := range indexed {
		if !onDisk[path] {
			if err = idx.store.DeleteWhere(ctx, "source", path); err != nil {
				idx.logger.Error(fmt.Sprintf("indexer: removing %s: %v", path, err), err)
			}
		}
	}
	return nil
}

// Watch blocks, reacting to file changes in the materials directory until ctx
// is cancelled.
func (idx *LibraryIndexer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer watcher.Close()

	if err = watcher.Add(idx.dir); err != nil {
		return errors.Wrapf(err, "watching %s", idx.dir)
	}
	idx.logger.Info("indexer: watching " + idx.dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSupportedFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				hash, err := fileHash(event.Name)
				if err != nil {
					idx.logger.Warn(fmt.Sprintf("indexer: hashing %s: %v", event.Name, err))
					continue
				}
				if err = idx.reindexFile(ctx, event.Name, hash); err != nil {
					idx.logger.Error(fmt.Sprintf("indexer: indexing %s: %v", event.Name, err), err)
				}
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				if err := idx.store.DeleteWhere(ctx, "source", event.Name); err != nil {
					idx.logger.Error(fmt.Sprintf("indexer: removing %s: %v", event.Name, err), err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			idx.logger.Error(fmt.Sprintf("indexer: watcher: %v", err), err)

		case <-ctx.Done():
			return nil
		}
	}
}

// reindexFile drops any previously indexed chunks for the file and indexes it
// from scratch.
func (idx *LibraryIndexer) reindexFile(ctx context.Context, path, hash string) error {
	if err := idx.store.DeleteWhere(ctx, "source", path); err != nil {
		return errors.Wrap(err, "removing old chunks")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := idx.extractor.Extract(ctx, data, contentTypes[strings.ToLower(filepath.Ext(path))])
	if err != nil {
		return errors.Wrap(err, "extracting text")
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return errors.Wrap(err, "splitting text")
	}

	chunks := make([]core.DocChunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, core.DocChunk{
			ID:   fmt.Sprintf("library_%s_%d", hash[:12], i),
			Text: part,
			Metadata: map[string]interface{}{
				"user_id":   core.LibraryScope,
				"source":    path,
				"hash":      hash,
				"chunk_num": i,
			},
		})
	}
	return idx.store.Add(ctx, chunks...)
}

func isSupportedFile(path string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()
	hash := sha256.New()
	if _, err = io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
