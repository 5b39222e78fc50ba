// package formatter renders tracklists as CSV, Markdown, plain text and JSON files
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every format accepted by [Write].
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ExportToCSV converts a Tracklist to CSV format with columns: ID, Name, Artist, Album, URI
func ExportToCSV(list *models.Tracklist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range list.Tracks {
		record := []string{track.ID, track.Name, track.Artist, track.Album, track.URI}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Tracklist to Markdown with a numbered track list
func ExportToMarkdown(list *models.Tracklist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", list.Name))
	if list.PlaylistID != "" {
		buf.WriteString(fmt.Sprintf("**Playlist**: [%s](https://open.spotify.com/playlist/%s)\n", list.PlaylistID, list.PlaylistID))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(list.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range list.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Name, albumPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Tracklist to plain text format
func ExportToText(list *models.Tracklist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", list.Name))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(list.Tracks)))

	for i, track := range list.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Name))
	}

	return buf.Bytes(), nil
}

// Metadata describes a tracklist without its tracks.
type Metadata struct {
	PlaylistID   string `json:"playlistId,omitempty"`
	PlaylistName string `json:"playlistName"`
	TrackCount   int    `json:"trackCount"`
}

// ToMetadataJSON generates a JSON representation of tracklist metadata (without tracks)
func ToMetadataJSON(list *models.Tracklist) ([]byte, error) {
	return shared.MarshalJSON(Metadata{
		PlaylistID:   list.PlaylistID,
		PlaylistName: list.Name,
		TrackCount:   len(list.Tracks),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a tracklist to CSV format with accompanying metadata JSON file.
//
// Defaults to the playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(list *models.Tracklist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = baseName(list)
	}

	csvData, err := ExportToCSV(list)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(list)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a tracklist to {outputDir}/README.md, creating the directory.
//
// Directory name defaults to the playlist ID.
func WriteMarkdownExport(list *models.Tracklist, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = baseName(list)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(list)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a tracklist to plain text format.
//
// Defaults to {playlist ID}_tracks.txt as the filename.
func WriteTextExport(list *models.Tracklist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", baseName(list))
	}

	textData, err := ExportToText(list)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(v any, path string) (string, error) {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// Write exports list into dir using format and returns the files it created.
func Write(list *models.Tracklist, format, dir string) ([]string, error) {
	base := filepath.Join(dir, baseName(list))

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(list, base)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case FormatMarkdown:
		file, err := WriteMarkdownExport(list, base)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return []string{file}, nil
	case FormatText:
		file, err := WriteTextExport(list, base+"_tracks.txt")
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{file}, nil
	case FormatJSON, "":
		file, err := WriteJSON(list, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// baseName prefers the playlist id and falls back to a filesystem-safe form of the name.
func baseName(list *models.Tracklist) string {
	if list.PlaylistID != "" {
		return list.PlaylistID
	}

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, list.Name)
	if name == "" {
		return "playlist"
	}
	return name
}
