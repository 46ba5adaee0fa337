package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"minisearch/internal/catalog"
	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

const fixtureSchema = `
CREATE TABLE field (
  field_id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  notes TEXT,
  main_category INTEGER,
  encoding_id INTEGER,
  units TEXT,
  num_participants INTEGER
);
CREATE TABLE category (
  category_id INTEGER PRIMARY KEY,
  title TEXT NOT NULL
);
CREATE TABLE esimpint (
  encoding_id INTEGER NOT NULL,
  value INTEGER NOT NULL,
  meaning TEXT
);
CREATE TABLE esimpstring (
  encoding_id INTEGER NOT NULL,
  value TEXT NOT NULL,
  meaning TEXT
);
CREATE TABLE recommended (
  field_id INTEGER NOT NULL
);
`

func writeFixtureDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ukb_datadict.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	stmts := []string{
		`INSERT INTO category(category_id, title) VALUES (100, 'Baseline characteristics'), (101, 'Body size measures')`,
		`INSERT INTO field(field_id, title, notes, main_category, encoding_id, units, num_participants) VALUES
		 (31, 'Sex', 'Sex of the participant', 100, 9, NULL, 502411),
		 (50, 'Standing height', 'Standing height measured at assessment', 101, NULL, 'cm', 499899),
		 (21002, 'Weight', 'Weight measured at assessment', 101, NULL, 'kg', 499731)`,
		`INSERT INTO esimpint(encoding_id, value, meaning) VALUES (9, 0, 'Female'), (9, 1, 'Male')`,
		`INSERT INTO esimpstring(encoding_id, value, meaning) VALUES (819, 'UKB', 'UK Biobank assessment centre')`,
		`INSERT INTO recommended(field_id) VALUES (21002), (31)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("insert fixture: %v", err)
		}
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()
	s := NewSQLiteStore(writeFixtureDB(t))
	defer func() { _ = s.Close() }()

	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	snap, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	cat, err := catalog.New(snap)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}

	sex, err := cat.LookupByID(31)
	if err != nil {
		t.Fatalf("LookupByID(31): %v", err)
	}
	if sex.Name != "Sex" || sex.Category != "Baseline characteristics" || sex.EncodingRef != 9 {
		t.Fatalf("field 31 loaded wrong: %+v", sex)
	}
	if sex.Participants != 502411 {
		t.Fatalf("participants = %d", sex.Participants)
	}

	entry, err := cat.ResolveEncoding(9, "0")
	if err != nil || entry.Label != "Female" {
		t.Fatalf("encoding 9/0 = %+v, %v", entry, err)
	}
	strEntry, err := cat.ResolveEncoding(819, "UKB")
	if err != nil || strEntry.Label != "UK Biobank assessment centre" {
		t.Fatalf("string encoding broken: %+v, %v", strEntry, err)
	}

	rec := cat.Recommended("", 0)
	if len(rec) != 2 || rec[0].ID != 31 {
		t.Fatalf("recommended list broken: %+v", rec)
	}

	height, err := cat.LookupByID(50)
	if err != nil || height.Units != "cm" {
		t.Fatalf("units not loaded: %+v, %v", height, err)
	}
}

func TestInitMissingFile(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "absent.db"))
	err := s.Init(context.Background())
	if err == nil {
		t.Fatalf("missing file must fail Init")
	}
	if model.CodeOf(err) != protocol.ErrorCodeStoreUnavailable {
		t.Fatalf("code = %q, want STORE_UNAVAILABLE", model.CodeOf(err))
	}
}

func TestInitEmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE field (field_id INTEGER PRIMARY KEY, title TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = db.Close()

	s := NewSQLiteStore(path)
	if err := s.Init(context.Background()); err == nil {
		t.Fatalf("empty dictionary must fail Init")
	}
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	s := NewSQLiteStore(writeFixtureDB(t))
	defer func() { _ = s.Close() }()

	fields, categories, encodings, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if fields != 3 || categories != 2 || encodings != 2 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/2", fields, categories, encodings)
	}
}
