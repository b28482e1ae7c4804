package subtitle

import (
	"context"
	"log"
	"strings"
)

// Adapter converts a raw video reference into subtitle content for one
// platform. Implementations must return an AcquisitionResult even on partial
// success (title/description without a transcript); an error means the
// platform could not be reached at all.
type Adapter interface {
	FetchTranscript(ctx context.Context, ref VideoRef, withTimestamp bool) (*AcquisitionResult, error)
}

// AudioTranscriber is the audio-download-and-transcribe fallback.
type AudioTranscriber interface {
	// Available probes whether the audio extraction capability exists
	// (e.g. yt-dlp installed) without attempting a download.
	Available() bool
	Transcribe(ctx context.Context, ref VideoRef, withTimestamp bool) (*AcquisitionResult, error)
}

// Fetcher sequences platform adapters and the audio fallback into a
// deterministic chain: subtitle → audio → description → title → raw id.
// It never returns a hard failure as long as some identifying string exists.
type Fetcher struct {
	adapters map[Service]Adapter
	audio    AudioTranscriber
}

func NewFetcher(adapters map[Service]Adapter, audio AudioTranscriber) *Fetcher {
	return &Fetcher{adapters: adapters, audio: audio}
}

// Fetch runs the fallback chain. The returned result always carries a
// non-empty transcript unless ref.VideoID, the title and the description are
// all empty, in which case Transcript stays nil and the caller surfaces the
// acquisition failure.
func (f *Fetcher) Fetch(ctx context.Context, ref VideoRef, withTimestamp, enableAudio bool) *AcquisitionResult {
	result := f.fetchFromAdapter(ctx, ref, withTimestamp)
	result.Source = SourceSubtitle

	if result.HasTranscript() {
		return result
	}

	adapter := f.adapters[ref.Service]
	if !enableAudio || adapter == nil || f.audio == nil || !f.audio.Available() {
		if !enableAudio {
			log.Printf("[fetcher] %s: audio transcription disabled, synthesizing transcript", ref)
		} else {
			log.Printf("[fetcher] %s: audio extraction unavailable, synthesizing transcript", ref)
		}
		return f.synthesize(ref, result, withTimestamp)
	}

	log.Printf("[fetcher] %s: no subtitles, trying audio transcription", ref)
	audioResult, err := f.audio.Transcribe(ctx, ref, withTimestamp)
	if err != nil || !audioResult.HasTranscript() {
		if err != nil {
			log.Printf("[fetcher] %s: audio transcription failed: %v", ref, err)
		}
		return f.synthesize(ref, result, withTimestamp)
	}

	if audioResult.Title == "" {
		audioResult.Title = result.Title
	}
	if audioResult.DescriptionText == "" {
		audioResult.DescriptionText = result.DescriptionText
	}
	// The transcription's own duration wins over anything the adapter saw.
	if audioResult.DurationSeconds == 0 {
		audioResult.DurationSeconds = result.DurationSeconds
	}
	audioResult.Source = SourceAudio
	return audioResult
}

// fetchFromAdapter calls the platform adapter; any error is absorbed and
// logged so the chain can continue.
func (f *Fetcher) fetchFromAdapter(ctx context.Context, ref VideoRef, withTimestamp bool) *AcquisitionResult {
	adapter := f.adapters[ref.Service]
	if adapter == nil {
		log.Printf("[fetcher] %s: no adapter for service", ref)
		return &AcquisitionResult{Title: ref.VideoID}
	}
	result, err := adapter.FetchTranscript(ctx, ref, withTimestamp)
	if err != nil || result == nil {
		log.Printf("[fetcher] %s: subtitle fetch failed: %v", ref, err)
		return &AcquisitionResult{Title: ref.VideoID}
	}
	return result
}

// synthesize promotes the best remaining identifying string to a single
// transcript item: description, then title, then the raw video id. The
// result is marked SourceSubtitle even though the content may only be
// descriptive metadata.
func (f *Fetcher) synthesize(ref VideoRef, result *AcquisitionResult, withTimestamp bool) *AcquisitionResult {
	text := ""
	switch {
	case strings.TrimSpace(result.DescriptionText) != "":
		text = strings.TrimSpace(result.DescriptionText)
	case strings.TrimSpace(result.Title) != "":
		text = strings.TrimSpace(result.Title)
	case ref.VideoID != "":
		text = "视频ID: " + ref.VideoID
	default:
		// Nothing identifies this video; the caller surfaces the failure.
		return result
	}

	item := TranscriptItem{Text: text, Index: 0}
	if withTimestamp {
		zero := 0.0
		item.StartSeconds = &zero
	}
	result.Transcript = []TranscriptItem{item}
	result.Source = SourceSubtitle
	return result
}
