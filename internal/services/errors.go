package services

import "fmt"

// SaveStep names one network write of [SpotifyClient.SavePlaylist].
type SaveStep string

const (
	StepResolveUser    SaveStep = "resolve user"
	StepCreatePlaylist SaveStep = "create playlist"
	StepAddTracks      SaveStep = "add tracks"
	StepRename         SaveStep = "rename playlist"
	StepReplaceTracks  SaveStep = "replace tracks"
)

// SaveError reports which step of a save failed. Steps before it took effect remotely.
//
// PlaylistID is set once the playlist exists, so a failed create can be retried as an update.
type SaveError struct {
	Step       SaveStep
	PlaylistID string
	Err        error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save playlist: %s: %v", e.Step, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
