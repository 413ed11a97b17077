package stats

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

// documentRowID is the single row that holds the document.
const documentRowID = 1

// The column is json rather than jsonb: jsonb re-sorts object keys and
// would lose the first-seen order of domains.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS bot_stats (
	id         SMALLINT PRIMARY KEY,
	document   JSON NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectDocumentSQL = `SELECT document::text FROM bot_stats WHERE id = $1`

const upsertDocumentSQL = `
INSERT INTO bot_stats (id, document, updated_at)
VALUES ($1, $2::json, now())
ON CONFLICT (id) DO UPDATE
SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`

// dbtx is the subset of *pgxpool.Pool the persister uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresPersister stores the document as one row in PostgreSQL.
type PostgresPersister struct {
	db dbtx
}

// NewPostgresPersister returns a persister over db. Call EnsureSchema
// once before the first Load.
func NewPostgresPersister(db dbtx) *PostgresPersister {
	return &PostgresPersister{db: db}
}

// EnsureSchema creates the backing table if it does not exist.
func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	const op = "stats.PostgresPersister.EnsureSchema"

	if _, err := p.db.Exec(ctx, createTableSQL); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (p *PostgresPersister) Load(ctx context.Context) (Document, error) {
	const op = "stats.PostgresPersister.Load"

	var raw string
	err := p.db.QueryRow(ctx, selectDocumentSQL, documentRowID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, errx.E(op, errx.NotFound, err)
		}
		return Document{}, errx.E(op, errx.Unavailable, err)
	}

	doc, err := decodeDocument([]byte(raw))
	if err != nil {
		return Document{}, errx.E(op, errx.Invalid, err)
	}
	return doc, nil
}

func (p *PostgresPersister) Save(ctx context.Context, doc Document) error {
	const op = "stats.PostgresPersister.Save"

	data, err := encodeDocument(doc)
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	if _, err := p.db.Exec(ctx, upsertDocumentSQL, documentRowID, string(data)); err != nil {
		return errx.E(op, errx.Persistence, err)
	}
	return nil
}
