package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/lawtrack/internal/lawtext"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/store/blobstore"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLite keeps row metadata in SQLite and payloads (snapshot documents and
// artifact bodies) in a content-addressed blob store next to the database.
type SQLite struct {
	db     *sqlx.DB
	blobs  *blobstore.Blobstore
	logger logging.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) lawtrack.db and blobs/ under dir.
func OpenSQLite(dir string, logger logging.Logger) (*SQLite, error) {
	if logger == nil {
		return nil, errors.New("store: nil logger provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := "file:" + filepath.Join(dir, "lawtrack.db") + "?" + url.Values{
		"_pragma": {
			"busy_timeout(5000)",
			"foreign_keys(1)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	blobs, err := blobstore.New(filepath.Join(dir, "blobs"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobstore: %w", err)
	}

	logger.Info("sqlite store initialized", logging.Field{Key: "dir", Value: dir})
	return &SQLite{db: db, blobs: blobs, logger: logger, now: time.Now}, nil
}

func applySchema(db *sqlx.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ─── Tracked laws ──────────────────────────────────────────────────────

func (s *SQLite) LoadTrackedLaws(ctx context.Context) (map[string]model.TrackedLaw, error) {
	var rows []struct {
		Name string `db:"name"`
		Data string `db:"data"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, data FROM tracked_laws ORDER BY name`); err != nil {
		return nil, fmt.Errorf("load tracked laws: %w", err)
	}
	out := make(map[string]model.TrackedLaw, len(rows))
	for _, r := range rows {
		var law model.TrackedLaw
		if err := json.Unmarshal([]byte(r.Data), &law); err != nil {
			return nil, fmt.Errorf("decode tracked law %q: %w", r.Name, err)
		}
		out[r.Name] = law
	}
	return out, nil
}

func (s *SQLite) SaveTrackedLaws(ctx context.Context, laws map[string]model.TrackedLaw) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_laws`); err != nil {
			return fmt.Errorf("clear tracked laws: %w", err)
		}
		for _, law := range laws {
			if err := s.upsertLaw(ctx, tx, law); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) UpsertTrackedLaw(ctx context.Context, law model.TrackedLaw) error {
	return s.upsertLaw(ctx, s.db, law)
}

func (s *SQLite) upsertLaw(ctx context.Context, ex sqlx.ExecerContext, law model.TrackedLaw) error {
	if strings.TrimSpace(law.Name) == "" {
		return errors.New("store: tracked law without name")
	}
	data, err := json.Marshal(law)
	if err != nil {
		return fmt.Errorf("encode tracked law: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO tracked_laws(name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		law.Name, string(data), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert tracked law %q: %w", law.Name, err)
	}
	return nil
}

func (s *SQLite) DeleteTrackedLaw(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_laws WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete tracked law %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Snapshots ─────────────────────────────────────────────────────────

type snapshotRow struct {
	ID         string `db:"id"`
	LawName    string `db:"law_name"`
	SequenceID string `db:"sequence_id"`
	SavedAt    int64  `db:"saved_at"`
	BlobID     string `db:"blob_id"`
}

func (s *SQLite) SaveSnapshot(ctx context.Context, lawName, sequenceID string, doc *model.Document) (*model.Snapshot, error) {
	snap := model.Snapshot{LawName: lawName, SequenceID: sequenceID, Document: doc}
	var out *model.Snapshot
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		out, err = s.insertSnapshot(ctx, tx, snap)
		return err
	})
	return out, err
}

func (s *SQLite) insertSnapshot(ctx context.Context, tx *sqlx.Tx, snap model.Snapshot) (*model.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = s.now()
	}
	data, err := json.Marshal(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot document: %w", err)
	}
	blobID, err := s.blobs.Put(data)
	if err != nil {
		return nil, fmt.Errorf("store snapshot blob: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots(id, law_name, sequence_id, saved_at, blob_id) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.LawName, snap.SequenceID, snap.SavedAt.UnixNano(), blobID)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, lawName string) (*model.Snapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, law_name, sequence_id, saved_at, blob_id FROM snapshots
		WHERE law_name = ?
		ORDER BY saved_at DESC, rowid DESC
		LIMIT 1`, lawName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	data, err := s.blobs.Get(row.BlobID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot blob %s: %w", row.BlobID, err)
	}
	doc, err := lawtext.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot document: %w", err)
	}
	return &model.Snapshot{
		ID:         row.ID,
		LawName:    row.LawName,
		SequenceID: row.SequenceID,
		SavedAt:    time.Unix(0, row.SavedAt),
		Document:   doc,
	}, nil
}

// ─── Update history ────────────────────────────────────────────────────

func (s *SQLite) AppendUpdateHistory(ctx context.Context, records []model.UpdateRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return appendRecords(ctx, tx, records)
	})
}

func appendRecords(ctx context.Context, tx *sqlx.Tx, records []model.UpdateRecord) error {
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode update record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO update_history(law_name, checked_at, data) VALUES (?, ?, ?)`,
			r.LawName, r.CheckedAt.UnixNano(), string(data)); err != nil {
			return fmt.Errorf("insert update record: %w", err)
		}
	}
	return nil
}

func (s *SQLite) UpdateHistory(ctx context.Context, limit int) ([]model.UpdateRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []string
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT data FROM update_history ORDER BY id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("query update history: %w", err)
	}
	out := make([]model.UpdateRecord, 0, len(rows))
	for _, data := range rows {
		var r model.UpdateRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode update record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ─── Artifacts ─────────────────────────────────────────────────────────

func (s *SQLite) SaveArtifact(ctx context.Context, filename string, content []byte) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.putArtifact(ctx, tx, filename, content)
	})
}

func (s *SQLite) putArtifact(ctx context.Context, tx *sqlx.Tx, filename string, content []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	blobID, err := s.blobs.Put(content)
	if err != nil {
		return fmt.Errorf("store artifact blob: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts(filename, blob_id, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET blob_id = excluded.blob_id, size = excluded.size, updated_at = excluded.updated_at`,
		filename, blobID, len(content), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert artifact %q: %w", filename, err)
	}
	return nil
}

func (s *SQLite) GetArtifact(ctx context.Context, filename string) ([]byte, error) {
	var blobID string
	err := s.db.GetContext(ctx, &blobID, `SELECT blob_id FROM artifacts WHERE filename = ?`, filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}
	data, err := s.blobs.Get(blobID)
	if err != nil {
		return nil, fmt.Errorf("load artifact blob %s: %w", blobID, err)
	}
	return data, nil
}

func (s *SQLite) ListArtifacts(ctx context.Context) ([]ArtifactInfo, error) {
	var rows []struct {
		Filename  string `db:"filename"`
		Size      int64  `db:"size"`
		UpdatedAt int64  `db:"updated_at"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT filename, size, updated_at FROM artifacts ORDER BY updated_at DESC, filename`); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	out := make([]ArtifactInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, ArtifactInfo{Filename: r.Filename, Size: r.Size, UpdatedAt: time.Unix(0, r.UpdatedAt)})
	}
	return out, nil
}

// ─── Commit ────────────────────────────────────────────────────────────

func (s *SQLite) CommitChange(ctx context.Context, cs ChangeSet) (*model.Snapshot, error) {
	var snap *model.Snapshot
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if snap, err = s.insertSnapshot(ctx, tx, cs.Snapshot); err != nil {
			return err
		}
		for name, content := range cs.Artifacts {
			if err := s.putArtifact(ctx, tx, name, content); err != nil {
				return err
			}
		}
		if err := s.upsertLaw(ctx, tx, cs.Law); err != nil {
			return err
		}
		return appendRecords(ctx, tx, cs.Records)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return nil
}
