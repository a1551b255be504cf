package api

import (
	"database/sql"
	"path/filepath"

	"github.com/piju/piju-server/internal/player"
	"github.com/piju/piju-server/internal/store"
)

// jsonTrack renders the over-the-wire shape of a catalog track. Related
// entities are links; debug additionally exposes the file path.
func jsonTrack(t store.Track, debug bool) map[string]interface{} {
	rtn := map[string]interface{}{
		"link":        FormatLink("tracks", t.ID),
		"artist":      t.Artist,
		"title":       t.Title,
		"genre":       nil,
		"disknumber":  t.VolumeNumber,
		"tracknumber": t.TrackNumber,
		"trackcount":  t.TrackCount,
		"fileformat":  filepath.Ext(t.Filepath),
		"album":       "",
		"artwork":     nil,
		"artworkinfo": nil,
	}
	if t.GenreID != nil {
		rtn["genre"] = FormatLink("genres", *t.GenreID)
	}
	if t.AlbumID != nil {
		rtn["album"] = FormatLink("albums", *t.AlbumID)
	}
	if t.ArtworkID != nil {
		rtn["artwork"] = FormatLink("artwork", *t.ArtworkID)
		rtn["artworkinfo"] = FormatLink("artworkinfo", *t.ArtworkID)
	}
	if debug {
		rtn["filepath"] = t.Filepath
	}
	return rtn
}

// jsonQueuedItem renders a queue entry: catalog tracks by id, downloads
// (negative ids) from the data carried in the queue itself.
func jsonQueuedItem(tx *sql.Tx, item player.QueuedItem, debug bool) (map[string]interface{}, error) {
	if item.TrackID >= 0 {
		t, err := store.GetTrackByID(tx, item.TrackID)
		if err != nil {
			return nil, err
		}
		return jsonTrack(t, debug), nil
	}

	rtn := map[string]interface{}{
		"link":        FormatLink("tracks", item.TrackID),
		"artist":      item.Artist,
		"title":       item.Title,
		"genre":       nil,
		"disknumber":  nil,
		"tracknumber": nil,
		"trackcount":  nil,
		"fileformat":  filepath.Ext(item.Filepath),
		"album":       nil,
		"artwork":     nil,
		"artworkinfo": nil,
	}
	if item.Artwork != "" {
		rtn["artwork"] = item.Artwork
	}
	if debug {
		rtn["filepath"] = item.Filepath
	}
	return rtn, nil
}

// jsonAlbum renders an album, embedding its tracks per the requested
// level. The album artwork is the first track artwork found.
func jsonAlbum(tx *sql.Tx, a store.Album, trackLevel InformationLevel) (map[string]interface{}, error) {
	tracks, err := store.TracksForAlbum(tx, a.ID)
	if err != nil {
		return nil, err
	}
	genreIDs, err := store.AlbumGenres(tx, a.ID)
	if err != nil {
		return nil, err
	}

	var artworkURI interface{}
	for _, t := range tracks {
		if t.ArtworkID != nil {
			artworkURI = FormatLink("artwork", *t.ArtworkID)
			break
		}
	}

	genres := make([]string, 0, len(genreIDs))
	for _, gid := range genreIDs {
		genres = append(genres, FormatLink("genres", gid))
	}

	rtn := map[string]interface{}{
		"link":          FormatLink("albums", a.ID),
		"artist":        a.Artist,
		"title":         a.Title,
		"releasedate":   a.ReleaseYear,
		"iscompilation": a.IsCompilation,
		"numberdisks":   a.VolumeCount,
		"artwork":       map[string]interface{}{"link": artworkURI},
		"genres":        genres,
	}

	switch trackLevel {
	case InfoLinks:
		links := make([]string, 0, len(tracks))
		for _, t := range tracks {
			links = append(links, FormatLink("tracks", t.ID))
		}
		rtn["tracks"] = links
	case InfoAll, InfoDebug:
		full := make([]map[string]interface{}, 0, len(tracks))
		for _, t := range tracks {
			full = append(full, jsonTrack(t, trackLevel == InfoDebug))
		}
		rtn["tracks"] = full
	}
	return rtn, nil
}

func jsonGenre(tx *sql.Tx, g store.Genre, albumLevel, playlistLevel InformationLevel) (map[string]interface{}, error) {
	rtn := map[string]interface{}{
		"link": FormatLink("genres", g.ID),
		"name": g.Name,
	}

	if albumLevel != InfoNone {
		albums, err := store.AlbumsForGenre(tx, g.ID)
		if err != nil {
			return nil, err
		}
		if albumLevel == InfoLinks {
			links := make([]string, 0, len(albums))
			for _, a := range albums {
				links = append(links, FormatLink("albums", a.ID))
			}
			rtn["albums"] = links
		} else {
			full := make([]map[string]interface{}, 0, len(albums))
			for _, a := range albums {
				j, err := jsonAlbum(tx, a, albumLevel)
				if err != nil {
					return nil, err
				}
				full = append(full, j)
			}
			rtn["albums"] = full
		}
	}

	if playlistLevel != InfoNone {
		ids, err := store.PlaylistIDsForGenre(tx, g.ID)
		if err != nil {
			return nil, err
		}
		if playlistLevel == InfoLinks {
			links := make([]string, 0, len(ids))
			for _, id := range ids {
				links = append(links, FormatLink("playlists", id))
			}
			rtn["playlists"] = links
		} else {
			full := make([]map[string]interface{}, 0, len(ids))
			for _, id := range ids {
				p, err := store.GetPlaylistByID(tx, id)
				if err != nil {
					return nil, err
				}
				j, err := jsonPlaylist(tx, p, InfoNone, playlistLevel)
				if err != nil {
					return nil, err
				}
				full = append(full, j)
			}
			rtn["playlists"] = full
		}
	}
	return rtn, nil
}

func jsonPlaylist(tx *sql.Tx, p store.Playlist, genreLevel, trackLevel InformationLevel) (map[string]interface{}, error) {
	rtn := map[string]interface{}{
		"link":  FormatLink("playlists", p.ID),
		"title": p.Title,
	}

	if genreLevel != InfoNone {
		if genreLevel == InfoLinks {
			links := make([]string, 0, len(p.GenreIDs))
			for _, gid := range p.GenreIDs {
				links = append(links, FormatLink("genres", gid))
			}
			rtn["genres"] = links
		} else {
			full := make([]map[string]interface{}, 0, len(p.GenreIDs))
			for _, gid := range p.GenreIDs {
				g, err := store.GetGenreByID(tx, gid)
				if err != nil {
					return nil, err
				}
				j, err := jsonGenre(tx, g, InfoNone, InfoNone)
				if err != nil {
					return nil, err
				}
				full = append(full, j)
			}
			rtn["genres"] = full
		}
	}

	switch trackLevel {
	case InfoLinks:
		links := make([]string, 0, len(p.Entries))
		for _, e := range p.Entries {
			links = append(links, FormatLink("tracks", e.TrackID))
		}
		rtn["tracks"] = links
	case InfoAll, InfoDebug:
		full := make([]map[string]interface{}, 0, len(p.Entries))
		for _, e := range p.Entries {
			t, err := store.GetTrackByID(tx, e.TrackID)
			if err != nil {
				return nil, err
			}
			full = append(full, jsonTrack(t, trackLevel == InfoDebug))
		}
		rtn["tracks"] = full
	}
	return rtn, nil
}

func jsonRadioStation(s store.RadioStation, includeURLs bool) map[string]interface{} {
	rtn := map[string]interface{}{
		"link":    FormatLink("radio", s.ID),
		"name":    s.Name,
		"artwork": s.ArtworkURL,
	}
	if includeURLs {
		rtn["url"] = s.URL
		rtn["now_playing_url"] = s.NowPlayingURL
		rtn["now_playing_jq"] = s.NowPlayingJq
		rtn["now_playing_artwork_url"] = s.NowPlayingArtworkURL
		rtn["now_playing_artwork_jq"] = s.NowPlayingArtworkJq
	}
	return rtn
}
