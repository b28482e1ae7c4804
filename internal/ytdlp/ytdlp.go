// Package ytdlp wraps the yt-dlp binary for audio download and video
// metadata probing.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Available reports whether the yt-dlp binary can be found. Used as the
// capability probe before any audio fallback is attempted.
func Available() bool {
	_, err := exec.LookPath("yt-dlp")
	return err == nil
}

// Meta is the subset of yt-dlp --dump-json output we consume.
type Meta struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

// Probe fetches video metadata without downloading media.
func Probe(ctx context.Context, videoURL string) (*Meta, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--dump-json",
		"--no-warnings",
		"--skip-download",
		videoURL,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, fmt.Errorf("yt-dlp probe: decode: %w", err)
	}
	return &meta, nil
}

// DownloadAudio downloads the worst-quality audio track (smallest upload for
// transcription) as m4a/mp3 into a temp directory. The caller owns the
// returned file and its parent directory.
func DownloadAudio(ctx context.Context, videoURL string) (string, *Meta, error) {
	dir, err := os.MkdirTemp("", "summary-audio-*")
	if err != nil {
		return "", nil, err
	}

	outPattern := filepath.Join(dir, "audio.%(ext)s")
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "worstaudio/worst",
		"-x", "--audio-format", "mp3",
		"--audio-quality", "9",
		"--no-warnings",
		"--no-playlist",
		"-o", outPattern,
		"--print-json",
		videoURL,
	)
	output, err := cmd.Output()
	if err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("yt-dlp download: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(output, &meta); err != nil {
		// Metadata is best-effort; the audio file is what matters.
		meta = Meta{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("yt-dlp download: no audio file produced")
	}
	return filepath.Join(dir, entries[0].Name()), &meta, nil
}
