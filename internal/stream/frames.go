// Package stream implements the wire protocol that multiplexes progress,
// metadata and summary content over one ordered byte stream, plus the
// client-side incremental decoder and processing-stage state machine.
//
// Structured frames are `data: <json>\n\n` segments; summary content is raw
// UTF-8 bytes. The encoder guarantees structured frames only precede
// content — the decoder relies on that and cannot verify it.
package stream

import "github.com/video-summary/backend/internal/subtitle"

// Stage is the processing stage reported to the client.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageFetchingSubtitle  Stage = "fetching_subtitle"
	StageTranscribingAudio Stage = "transcribing_audio"
	StageGeneratingSummary Stage = "generating_summary"
	StageCompleted         Stage = "completed"
	StageError             Stage = "error"
)

// frameType discriminates the structured frame union on the wire.
const (
	frameProgress = "progress"
	frameMetadata = "metadata"
	frameError    = "error"
)

// ProgressFrame reports acquisition/generation progress.
type ProgressFrame struct {
	Type     string `json:"type"`
	Stage    Stage  `json:"stage"`
	Message  string `json:"message"`
	Progress int    `json:"progress,omitempty"`
}

// MetadataFrame carries extracted video metadata. SubtitlesArray is always
// present (empty when the video had no subtitles) so clients can distinguish
// "none" from "not sent".
type MetadataFrame struct {
	Type           string                    `json:"type"`
	Duration       float64                   `json:"duration,omitempty"`
	Title          string                    `json:"title,omitempty"`
	SubtitlesArray []subtitle.TranscriptItem `json:"subtitlesArray"`
	SubtitleSource string                    `json:"subtitleSource,omitempty"`
}

// ErrorFrame signals a failure after the stream has started.
type ErrorFrame struct {
	Type         string `json:"type"`
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}
