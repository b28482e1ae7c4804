package subtitle

import (
	"context"
	"errors"

	"github.com/video-summary/backend/internal/ytdlp"
)

// DouyinAdapter covers douyin, which exposes no subtitle track API. It
// probes title/description/duration via yt-dlp so the fallback chain can
// proceed to audio transcription or metadata synthesis.
type DouyinAdapter struct{}

func NewDouyinAdapter() *DouyinAdapter {
	return &DouyinAdapter{}
}

func (a *DouyinAdapter) FetchTranscript(ctx context.Context, ref VideoRef, withTimestamp bool) (*AcquisitionResult, error) {
	if !ytdlp.Available() {
		return nil, errors.New("yt-dlp not installed")
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	meta, err := ytdlp.Probe(ctx, ref.URL())
	if err != nil {
		return nil, err
	}
	return &AcquisitionResult{
		Title:           meta.Title,
		DescriptionText: meta.Description,
		DurationSeconds: meta.Duration,
	}, nil
}
