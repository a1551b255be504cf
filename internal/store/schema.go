package store

import "database/sql"

// schema is the catalog DDL. Production databases are created and migrated
// by external tooling; this definition backs tests and must be kept in step
// with the deployed migrations.
const schema = `
CREATE TABLE IF NOT EXISTS genres (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS albums (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	artist TEXT,
	volume_count INTEGER,
	release_year INTEGER,
	is_compilation INTEGER NOT NULL DEFAULT 0,
	musicbrainz_album_id TEXT,
	musicbrainz_album_artist_id TEXT
);

CREATE TABLE IF NOT EXISTS artwork (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT,
	blob BLOB,
	blob_hash TEXT,
	width INTEGER,
	height INTEGER
);

CREATE INDEX IF NOT EXISTS idx_artwork_blob_hash ON artwork(blob_hash);
CREATE INDEX IF NOT EXISTS idx_artwork_path ON artwork(path);

CREATE TABLE IF NOT EXISTS tracks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filepath TEXT NOT NULL UNIQUE,
	title TEXT,
	duration_ms INTEGER,
	composer TEXT,
	artist TEXT,
	genre_id INTEGER REFERENCES genres(id),
	volume_number INTEGER,
	track_count INTEGER,
	track_number INTEGER,
	release_date TEXT,
	musicbrainz_track_id TEXT,
	musicbrainz_artist_id TEXT,
	album_id INTEGER REFERENCES albums(id),
	artwork_id INTEGER REFERENCES artwork(id)
);

CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);
CREATE INDEX IF NOT EXISTS idx_tracks_artwork ON tracks(artwork_id);
CREATE INDEX IF NOT EXISTS idx_tracks_genre ON tracks(genre_id);

CREATE TABLE IF NOT EXISTS album_genres (
	album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
	genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
	UNIQUE(album_id, genre_id)
);

CREATE TABLE IF NOT EXISTS playlists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS playlist_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	track_id INTEGER NOT NULL REFERENCES tracks(id),
	playlist_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_playlist_entries_playlist ON playlist_entries(playlist_id);

CREATE TABLE IF NOT EXISTS playlist_genres (
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
	UNIQUE(playlist_id, genre_id)
);

CREATE TABLE IF NOT EXISTS radio_stations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	artwork_url TEXT,
	now_playing_url TEXT,
	now_playing_jq TEXT,
	now_playing_artwork_url TEXT,
	now_playing_artwork_jq TEXT,
	sort_order INTEGER NOT NULL DEFAULT 0
);
`

// InitSchema creates the catalog tables if they do not already exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
