package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	return db
}

func TestWithTx_Success(t *testing.T) {
	db := setupTestDB(t)

	err := WithTx(db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "test")
		return err
	})

	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM test_table`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)

	testErr := errors.New("test error")

	err := WithTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "first"); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "second"); err != nil {
			return err
		}
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}

	// Everything done inside the transaction must be rolled back
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM test_table`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", count)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no-such.db"))
	if err == nil {
		t.Fatal("Open should fail when the database file does not exist")
	}
}

func TestOpenForTest_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	db, err := OpenForTest(path)
	if err != nil {
		t.Fatalf("OpenForTest failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
}

func TestNullPtrConversions(t *testing.T) {
	if got := NullInt64ToPtr(sql.NullInt64{Int64: 42, Valid: true}); got == nil || *got != 42 {
		t.Errorf("NullInt64ToPtr(valid 42) = %v, want 42", got)
	}
	if got := NullInt64ToPtr(sql.NullInt64{Int64: 42, Valid: false}); got != nil {
		t.Errorf("NullInt64ToPtr(invalid) = %v, want nil", got)
	}

	v := int64(7)
	if got := PtrToNullInt64(&v); !got.Valid || got.Int64 != 7 {
		t.Errorf("PtrToNullInt64(&7) = %+v", got)
	}
	if got := PtrToNullInt64(nil); got.Valid {
		t.Errorf("PtrToNullInt64(nil) = %+v, want invalid", got)
	}

	s := "rock"
	if got := PtrToNullString(&s); !got.Valid || got.String != "rock" {
		t.Errorf("PtrToNullString(&rock) = %+v", got)
	}
	if got := NullStringToPtr(sql.NullString{}); got != nil {
		t.Errorf("NullStringToPtr(invalid) = %v, want nil", got)
	}

	if got := NullStringValue(sql.NullString{String: "x", Valid: true}); got != "x" {
		t.Errorf("NullStringValue = %q, want x", got)
	}
	if got := NullInt64Value(sql.NullInt64{Int64: 9, Valid: false}); got != 0 {
		t.Errorf("NullInt64Value(invalid) = %d, want 0", got)
	}
}
