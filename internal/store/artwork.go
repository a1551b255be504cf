package store

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // dedup probe, not a trust root
	"database/sql"
	"encoding/hex"
	"fmt"

	dbutil "github.com/piju/piju-server/internal/db"
)

const artworkColumns = `id, path, blob, blob_hash, width, height`

func scanArtwork(row interface{ Scan(...interface{}) error }) (Artwork, error) {
	var a Artwork
	var path, hash sql.NullString
	var width, height sql.NullInt64

	if err := row.Scan(&a.ID, &path, &a.Blob, &hash, &width, &height); err != nil {
		return Artwork{}, err
	}
	a.Path = path.String
	a.BlobHash = hash.String
	a.Width = dbutil.NullInt64Value(width)
	a.Height = dbutil.NullInt64Value(height)
	return a, nil
}

// BlobHash computes the SHA-1 hex digest used to index artwork blobs.
func BlobHash(blob []byte) string {
	sum := sha1.Sum(blob) //nolint:gosec // dedup probe, not a trust root
	return hex.EncodeToString(sum[:])
}

// EnsureArtworkExists deduplicates artwork. Path-bearing refs match on Path;
// blob-bearing refs match on the SHA-1 probe and are confirmed by a full
// byte comparison before reuse. A match with different dimensions updates
// them in place; otherwise a fresh row is inserted.
func EnsureArtworkExists(tx *sql.Tx, ref Artwork) (Artwork, error) {
	var existing *Artwork

	switch {
	case ref.Path != "":
		row := tx.QueryRow(`SELECT `+artworkColumns+` FROM artwork WHERE path = ?`, ref.Path)
		a, err := scanArtwork(row)
		if err != nil && err != sql.ErrNoRows {
			return Artwork{}, err
		}
		if err == nil {
			existing = &a
		}

	case len(ref.Blob) > 0:
		ref.BlobHash = BlobHash(ref.Blob)
		rows, err := tx.Query(`SELECT `+artworkColumns+` FROM artwork WHERE blob_hash = ?`, ref.BlobHash)
		if err != nil {
			return Artwork{}, err
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanArtwork(rows)
			if err != nil {
				return Artwork{}, err
			}
			if bytes.Equal(a.Blob, ref.Blob) {
				existing = &a
				break
			}
		}
		if err := rows.Err(); err != nil {
			return Artwork{}, err
		}

	default:
		return Artwork{}, fmt.Errorf("artwork reference has neither path nor blob: %w", ErrBadInput)
	}

	if existing != nil {
		if existing.Width != ref.Width || existing.Height != ref.Height {
			existing.Width = ref.Width
			existing.Height = ref.Height
			if _, err := tx.Exec(`UPDATE artwork SET width = ?, height = ? WHERE id = ?`,
				ref.Width, ref.Height, existing.ID); err != nil {
				return Artwork{}, err
			}
		}
		return *existing, nil
	}

	res, err := tx.Exec(`INSERT INTO artwork (path, blob, blob_hash, width, height)
		VALUES (?, ?, ?, ?, ?)`,
		sqlNullIfEmpty(ref.Path), ref.Blob, sqlNullIfEmpty(ref.BlobHash), ref.Width, ref.Height)
	if err != nil {
		return Artwork{}, err
	}
	ref.ID, err = res.LastInsertId()
	return ref, err
}

// GetArtworkByID returns the artwork for the given id, or ErrNotFound.
func GetArtworkByID(tx *sql.Tx, id int64) (Artwork, error) {
	row := tx.QueryRow(`SELECT `+artworkColumns+` FROM artwork WHERE id = ?`, id)
	a, err := scanArtwork(row)
	if err == sql.ErrNoRows {
		return Artwork{}, fmt.Errorf("artwork %d: %w", id, ErrNotFound)
	}
	return a, err
}

// GetArtworkWithoutTracks returns artwork rows no track references.
func GetArtworkWithoutTracks(tx *sql.Tx) ([]Artwork, error) {
	rows, err := tx.Query(`SELECT ` + artworkColumns + ` FROM artwork
		WHERE NOT EXISTS (SELECT 1 FROM tracks WHERE tracks.artwork_id = artwork.id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artworks []Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		artworks = append(artworks, a)
	}
	return artworks, rows.Err()
}

// DeleteArtwork removes an artwork row.
func DeleteArtwork(tx *sql.Tx, id int64) error {
	res, err := tx.Exec(`DELETE FROM artwork WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("artwork %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountArtworks returns the number of artwork rows in the catalog.
func CountArtworks(tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRow(`SELECT COUNT(*) FROM artwork`).Scan(&n)
	return n, err
}

func sqlNullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
