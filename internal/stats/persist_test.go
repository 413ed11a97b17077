package stats

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

func TestFilePersister_Load(t *testing.T) {
	t.Run("missing file is not found", func(t *testing.T) {
		p := NewFilePersister(filepath.Join(t.TempDir(), "stats.json"))

		_, err := p.Load(context.Background())

		require.Error(t, err)
		assert.Equal(t, errx.NotFound, errx.KindOf(err))
	})

	t.Run("fills missing fields with defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stats.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"total_links": 2}`), 0o644))

		doc, err := NewFilePersister(path).Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.TotalLinks)
		assert.Equal(t, 0, doc.UserStats.Len())
		assert.Equal(t, 0, doc.DomainStats.Len())
	})

	t.Run("corrupt file is invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stats.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"total_links": `), 0o644))

		_, err := NewFilePersister(path).Load(context.Background())

		require.Error(t, err)
		assert.Equal(t, errx.Invalid, errx.KindOf(err))
	})
}

func TestFilePersister_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	p := NewFilePersister(path)
	doc := Document{
		TotalLinks:  5,
		UserStats:   NewCounter(Entry{"42", 5}),
		DomainStats: NewCounter(Entry{"a.com", 5}),
	}

	require.NoError(t, p.Save(context.Background(), doc))
	got, err := p.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, doc, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFilePersister_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	p := NewFilePersister(path)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, Document{TotalLinks: 1, UserStats: NewCounter(Entry{"1", 1})}))
	require.NoError(t, p.Save(ctx, Document{TotalLinks: 2, UserStats: NewCounter(Entry{"1", 2})}))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalLinks)
}

func TestFilePersister_SaveFailsForMissingDirectory(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "missing", "stats.json"))

	err := p.Save(context.Background(), Document{})

	require.Error(t, err)
	assert.Equal(t, errx.Persistence, errx.KindOf(err))
}
