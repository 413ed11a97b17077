package stats

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

// Persister loads and saves the whole statistics document.
// Load returns an errx.NotFound error when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// FilePersister keeps the document as an indented JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister that reads and writes path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string { return p.path }

func (p *FilePersister) Load(_ context.Context) (Document, error) {
	const op = "stats.FilePersister.Load"

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, errx.E(op, errx.NotFound, err)
		}
		return Document{}, errx.E(op, errx.Unavailable, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return Document{}, errx.E(op, errx.Invalid, err)
	}
	return doc, nil
}

// Save replaces the file contents. The document is written to a temporary
// file in the same directory and renamed over the target, so readers never
// observe a half-written file.
func (p *FilePersister) Save(_ context.Context, doc Document) error {
	const op = "stats.FilePersister.Save"

	data, err := encodeDocument(doc)
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return errx.E(op, errx.Persistence, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errx.E(op, errx.Persistence, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errx.E(op, errx.Persistence, err)
	}
	if err := tmp.Close(); err != nil {
		return errx.E(op, errx.Persistence, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errx.E(op, errx.Persistence, err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return errx.E(op, errx.Persistence, err)
	}
	return nil
}
