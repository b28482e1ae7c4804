package audio

import (
	"context"
	"encoding/json"
	"log"
	"os/exec"
	"strconv"
)

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// probeDuration reads the duration of a downloaded audio file via ffprobe.
// Best-effort: returns 0 when ffprobe is missing or the file is unreadable.
func probeDuration(ctx context.Context, filePath string) float64 {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		log.Printf("[audio] ffprobe failed for %s: %v", filePath, err)
		return 0
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0
	}
	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return duration
}
