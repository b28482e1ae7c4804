package subtitle

import "fmt"

// Service identifies a supported video platform.
type Service string

const (
	ServiceBilibili Service = "bilibili"
	ServiceYoutube  Service = "youtube"
	ServiceDouyin   Service = "douyin"
)

// VideoRef points at one video (optionally one part of a multi-part video).
type VideoRef struct {
	Service    Service `json:"service"`
	VideoID    string  `json:"videoId"`
	PageNumber string  `json:"pageNumber,omitempty"`
}

// URL returns the public watch URL for the reference.
func (r VideoRef) URL() string {
	switch r.Service {
	case ServiceYoutube:
		return "https://www.youtube.com/watch?v=" + r.VideoID
	case ServiceDouyin:
		return "https://www.douyin.com/video/" + r.VideoID
	default:
		return "https://www.bilibili.com/video/" + r.VideoID
	}
}

func (r VideoRef) String() string {
	if r.PageNumber != "" {
		return fmt.Sprintf("%s/%s/p%s", r.Service, r.VideoID, r.PageNumber)
	}
	return fmt.Sprintf("%s/%s", r.Service, r.VideoID)
}

// TranscriptItem is one unit of transcript text. Index defines a strict
// total order used for reassembly; StartSeconds is set only when timestamp
// display was requested.
type TranscriptItem struct {
	Text         string   `json:"text"`
	Index        int      `json:"index"`
	StartSeconds *float64 `json:"s,omitempty"`
}

// Source marks where transcript content came from.
type Source string

const (
	SourceSubtitle Source = "subtitle"
	SourceAudio    Source = "audio"
)

// AcquisitionResult is what the acquisition pipeline hands downstream.
// Transcript may be nil only in the unrecoverable case where the caller
// supplied no identifying information at all.
type AcquisitionResult struct {
	Title           string
	Transcript      []TranscriptItem
	DescriptionText string
	DurationSeconds float64
	Source          Source
}

// HasTranscript reports whether a usable transcript was obtained.
func (r *AcquisitionResult) HasTranscript() bool {
	return r != nil && len(r.Transcript) > 0
}
