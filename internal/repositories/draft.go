package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
)

// DraftRepository persists the ordered working set of tracks in the draft_tracks table.
//
// Track ids are unique within the draft; rows carry a generated row id and a position.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new DraftRepository with the given database connection
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Add appends track unless a track with the same id is already present. It reports whether a row was added.
func (r *DraftRepository) Add(track models.Track) (bool, error) {
	if err := track.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO draft_tracks (id, position, track_id, name, artist, album, uri)
		SELECT ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM draft_tracks), ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM draft_tracks WHERE track_id = ?)
	`

	result, err := r.db.Exec(query,
		shared.GenerateID(),
		track.ID,
		track.Name,
		track.Artist,
		track.Album,
		track.URI,
		track.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert draft track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// Remove deletes the track with trackID. It reports whether a row was removed.
func (r *DraftRepository) Remove(trackID string) (bool, error) {
	result, err := r.db.Exec("DELETE FROM draft_tracks WHERE track_id = ?", trackID)
	if err != nil {
		return false, fmt.Errorf("failed to delete draft track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// List returns the draft tracks in insertion order.
func (r *DraftRepository) List() ([]models.Track, error) {
	query := `
		SELECT track_id, name, artist, album, uri
		FROM draft_tracks
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query draft tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Name, &t.Artist, &t.Album, &t.URI); err != nil {
			return nil, fmt.Errorf("failed to scan draft track: %w", err)
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Replace swaps the whole draft for tracks in one transaction. Later duplicates of an id are dropped.
func (r *DraftRepository) Replace(tracks []models.Track) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM draft_tracks"); err != nil {
		return fmt.Errorf("failed to clear draft tracks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO draft_tracks (id, position, track_id, name, artist, album, uri)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if _, err := stmt.Exec(shared.GenerateID(), i+1, t.ID, t.Name, t.Artist, t.Album, t.URI); err != nil {
			return fmt.Errorf("failed to insert draft track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit draft: %w", err)
	}
	return nil
}

// Clear removes every draft track.
func (r *DraftRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM draft_tracks"); err != nil {
		return fmt.Errorf("failed to clear draft tracks: %w", err)
	}
	return nil
}
