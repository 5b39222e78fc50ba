package tasks

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/jamlist/internal/formatter"
	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: spotify_export_{epoch})
	NumWorkers int     // Concurrent writers (default: 5, max 10)
	RateLimit  float64 // Playlist fetches per second (default: 5)
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Tracks       int
	Files        []string
	Success      bool
	Error        error

	index int
}

// BulkExportResult summarizes a bulk export. Results are in the order the playlists were requested.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

type exportJob struct {
	index int
	list  *models.Tracklist
}

type manifestEntry struct {
	PlaylistID   string   `json:"playlistId"`
	PlaylistName string   `json:"playlistName"`
	Tracks       int      `json:"tracks"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type manifest struct {
	Format     string          `json:"format"`
	ExportedAt time.Time       `json:"exportedAt"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Playlists  []manifestEntry `json:"playlists"`
}

// BulkExport fetches each playlist and writes it to disk with a pool of writers.
//
// Fetches are paced by a rate limiter; a playlist that fails to fetch or write is recorded and the export
// carries on. An export_manifest.json summarizing every result is written to the output directory.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src PlaylistSource,
	playlists []models.PlaylistSummary,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: playlist source", shared.ErrMissingArgument)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !slices.Contains(formatter.Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spotify_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(playlists)
	result := &BulkExportResult{
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, total)
	results := make(chan PlaylistExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	// the producer counts toward wg so results stays open until its last send
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, pl := range playlists {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(prog, fetchingPlaylistUpdate(i+1, total, pl.Name))
			tracks, err := src.Playlist(ctx, pl.ID)
			if err != nil {
				failed := PlaylistExportResult{
					PlaylistID:   pl.ID,
					PlaylistName: pl.Name,
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
					index:        i,
				}
				select {
				case <-ctx.Done():
					return
				case results <- failed:
				}
				continue
			}

			job := exportJob{
				index: i,
				list:  &models.Tracklist{Name: pl.Name, PlaylistID: pl.ID, Tracks: tracks},
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- job:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, total, res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, total, res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d playlists: %w", completed, total, err)
	}

	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int {
		return cmp.Compare(a.index, b.index)
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if _, err := formatter.WriteJSON(newManifest(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportWorker writes the playlists it receives from jobs until the channel closes.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := PlaylistExportResult{
			PlaylistID:   job.list.PlaylistID,
			PlaylistName: job.list.Name,
			Tracks:       len(job.list.Tracks),
			index:        job.index,
		}

		files, err := formatter.Write(job.list, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = err
		} else {
			res.Files = files
			res.Success = true
		}

		select {
		case <-ctx.Done():
			return
		case results <- res:
		}
	}
}

func newManifest(result *BulkExportResult, format string) manifest {
	m := manifest{
		Format:     format,
		ExportedAt: time.Now().UTC(),
		Total:      result.TotalPlaylists,
		Succeeded:  result.SuccessfulExports,
		Failed:     result.FailedExports,
		Playlists:  make([]manifestEntry, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := manifestEntry{
			PlaylistID:   res.PlaylistID,
			PlaylistName: res.PlaylistName,
			Tracks:       res.Tracks,
			Files:        res.Files,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}
	return m
}
