package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"minisearch/internal/catalog"
	"minisearch/internal/model"
)

// SQLiteStore reads the pre-built UK Biobank dictionary database. The file
// is opened read-only; this process never writes to it.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return model.StoreUnavailable("opening dictionary database", err)
	}

	// probe the schema so a missing or foreign file fails at startup,
	// not on the first query
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM field`).Scan(&n); err != nil {
		_ = db.Close()
		return model.StoreUnavailable("dictionary database has no field table", err)
	}
	if n == 0 {
		_ = db.Close()
		return model.StoreUnavailable("dictionary database is empty", nil)
	}

	s.db = db
	return nil
}

// LoadCatalog reads every table the catalog needs and returns the snapshot.
// Called once at startup; the connection stays open only for status queries.
func (s *SQLiteStore) LoadCatalog(ctx context.Context) (catalog.Snapshot, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return catalog.Snapshot{}, err
	}

	snap := catalog.Snapshot{Encodings: make(map[int][]model.EncodingEntry)}

	rows, err := db.QueryContext(ctx, `
		SELECT f.field_id,
		       f.title,
		       COALESCE(f.notes, ''),
		       COALESCE(c.title, ''),
		       COALESCE(f.units, ''),
		       COALESCE(f.num_participants, 0),
		       COALESCE(f.encoding_id, 0)
		FROM field f
		LEFT JOIN category c ON c.category_id = f.main_category
		ORDER BY f.field_id`)
	if err != nil {
		return catalog.Snapshot{}, model.StoreUnavailable("loading field table", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var f model.FieldRecord
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.Category, &f.Units, &f.Participants, &f.EncodingRef); err != nil {
			return catalog.Snapshot{}, model.StoreUnavailable("scanning field row", err)
		}
		snap.Fields = append(snap.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return catalog.Snapshot{}, model.StoreUnavailable("iterating field table", err)
	}

	if err := s.loadIntEncodings(ctx, db, snap.Encodings); err != nil {
		return catalog.Snapshot{}, err
	}
	if err := s.loadStringEncodings(ctx, db, snap.Encodings); err != nil {
		return catalog.Snapshot{}, err
	}

	recommended, err := s.loadRecommended(ctx, db)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	snap.Recommended = recommended

	return snap, nil
}

// loadIntEncodings reads esimpint. Integer codes are stored textually so one
// encoding table type serves both value kinds.
func (s *SQLiteStore) loadIntEncodings(ctx context.Context, db *sql.DB, out map[int][]model.EncodingEntry) error {
	rows, err := db.QueryContext(ctx,
		`SELECT encoding_id, value, COALESCE(meaning, '') FROM esimpint ORDER BY encoding_id, value`)
	if err != nil {
		return model.StoreUnavailable("loading esimpint table", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			ref     int
			value   int64
			meaning string
		)
		if err := rows.Scan(&ref, &value, &meaning); err != nil {
			return model.StoreUnavailable("scanning esimpint row", err)
		}
		out[ref] = append(out[ref], model.EncodingEntry{
			Code:  strconv.FormatInt(value, 10),
			Label: meaning,
		})
	}
	return rows.Err()
}

func (s *SQLiteStore) loadStringEncodings(ctx context.Context, db *sql.DB, out map[int][]model.EncodingEntry) error {
	rows, err := db.QueryContext(ctx,
		`SELECT encoding_id, value, COALESCE(meaning, '') FROM esimpstring ORDER BY encoding_id, value`)
	if err != nil {
		return model.StoreUnavailable("loading esimpstring table", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			ref     int
			value   string
			meaning string
		)
		if err := rows.Scan(&ref, &value, &meaning); err != nil {
			return model.StoreUnavailable("scanning esimpstring row", err)
		}
		out[ref] = append(out[ref], model.EncodingEntry{Code: value, Label: meaning})
	}
	return rows.Err()
}

func (s *SQLiteStore) loadRecommended(ctx context.Context, db *sql.DB) ([]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT field_id FROM recommended ORDER BY field_id`)
	if err != nil {
		// the curated list is optional; older dictionary builds ship
		// without the table
		return nil, nil
	}
	defer func() { _ = rows.Close() }()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, model.StoreUnavailable("scanning recommended row", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Counts reports table sizes for the status command.
func (s *SQLiteStore) Counts(ctx context.Context) (fields, categories, encodings int, err error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM field`).Scan(&fields); err != nil {
		return 0, 0, 0, model.StoreUnavailable("counting fields", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category`).Scan(&categories); err != nil {
		return 0, 0, 0, model.StoreUnavailable("counting categories", err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT DISTINCT encoding_id FROM esimpint UNION SELECT DISTINCT encoding_id FROM esimpstring)`).Scan(&encodings); err != nil {
		return 0, 0, 0, model.StoreUnavailable("counting encodings", err)
	}
	return fields, categories, encodings, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite db not initialized")
	}
	return s.db, nil
}
