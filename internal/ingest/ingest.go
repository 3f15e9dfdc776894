// Package ingest loads pre-chunked documentation into the knowledge
// store. Chunk files are JSONL, one chunk per line, as produced by the
// offline chunking step.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/moodlemate/moodlemate/internal/knowledge"
	"github.com/moodlemate/moodlemate/internal/log"
)

// Chunk is one JSONL record of a chunk file.
type Chunk struct {
	ChunkID string `json:"chunk_id"`
	PageID  string `json:"page_id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Text    string `json:"text"`
}

// Adder is the store contract the loader consumes. Implemented by
// knowledge.Store.
type Adder interface {
	Add(ctx context.Context, doc knowledge.Document) error
	Count(ctx context.Context) (int, error)
}

// Stats summarizes one load run.
type Stats struct {
	Files   int
	Loaded  int
	Skipped int
}

// Loader reads chunk files and upserts them into the store.
type Loader struct {
	store  Adder
	logger log.Logger
}

// NewLoader creates a Loader.
func NewLoader(store Adder, logger log.Logger) *Loader {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Loader{store: store, logger: logger.With("component", "ingest")}
}

// LoadDir loads every .jsonl file under dir. Malformed lines and
// empty chunks are skipped with a warning; a store failure aborts the
// run since continuing would leave an unknown subset loaded.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}

		stats.Files++
		loaded, skipped, err := l.loadFile(ctx, path)
		stats.Loaded += loaded
		stats.Skipped += skipped
		return err
	})
	if err != nil {
		return stats, fmt.Errorf("loading chunks from %s: %w", dir, err)
	}
	if stats.Files == 0 {
		return stats, fmt.Errorf("no .jsonl chunk files found in %s", dir)
	}

	l.logger.Info("ingestion complete",
		"files", stats.Files, "loaded", stats.Loaded, "skipped", stats.Skipped)
	return stats, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (loaded, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	l.logger.Info("loading chunk file", "path", path)

	loaded, skipped, err = l.load(ctx, f)
	if err != nil {
		return loaded, skipped, fmt.Errorf("loading %s: %w", path, err)
	}
	return loaded, skipped, nil
}

// load reads JSONL chunks from r and upserts them one by one.
func (l *Loader) load(ctx context.Context, r io.Reader) (loaded, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var chunk Chunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			l.logger.Warn("skipping malformed chunk", "line", line, "error", err)
			skipped++
			continue
		}
		if chunk.ChunkID == "" || strings.TrimSpace(chunk.Text) == "" {
			l.logger.Warn("skipping incomplete chunk", "line", line, "chunk_id", chunk.ChunkID)
			skipped++
			continue
		}

		doc := knowledge.Document{
			ID:      chunk.ChunkID,
			Content: chunk.Text,
			Metadata: map[string]string{
				knowledge.MetaTitle:   chunk.Title,
				knowledge.MetaURL:     chunk.URL,
				knowledge.MetaChunkID: chunk.ChunkID,
			},
		}
		if err := l.store.Add(ctx, doc); err != nil {
			return loaded, skipped, fmt.Errorf("adding chunk %s: %w", chunk.ChunkID, err)
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, skipped, fmt.Errorf("reading chunks: %w", err)
	}
	return loaded, skipped, nil
}
