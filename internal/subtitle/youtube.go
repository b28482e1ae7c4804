package subtitle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// YoutubeAdapter extracts subtitles through the savesubs.com downloader:
// one extract call listing available tracks, then a download of the chosen
// subtitle file (SRT/VTT/JSON depending on the track).
type YoutubeAdapter struct {
	httpClient *http.Client
	authToken  string
	baseURL    string
}

func NewYoutubeAdapter(authToken string) *YoutubeAdapter {
	return &YoutubeAdapter{
		httpClient: &http.Client{Timeout: fetchTimeout},
		authToken:  authToken,
		baseURL:    "https://savesubs.com",
	}
}

type savesubsFormat struct {
	Lang     string `json:"lang"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Duration string `json:"duration"`
}

type savesubsExtractResp struct {
	Response struct {
		Title       string           `json:"title"`
		DurationRaw string           `json:"duration_raw"`
		Formats     []savesubsFormat `json:"formats"`
	} `json:"response"`
}

func (a *YoutubeAdapter) FetchTranscript(ctx context.Context, ref VideoRef, withTimestamp bool) (*AcquisitionResult, error) {
	if a.authToken == "" {
		return nil, errors.New("savesubs auth token not configured")
	}

	extract, err := a.extract(ctx, ref.VideoID)
	if err != nil {
		return nil, err
	}

	result := &AcquisitionResult{Title: extract.Response.Title}
	if result.Title == "" {
		result.Title = ref.VideoID
	}
	result.DurationSeconds = ParseClockDuration(extract.Response.DurationRaw)

	if len(extract.Response.Formats) == 0 {
		return result, nil
	}

	track := pickYoutubeTrack(extract.Response.Formats)
	if track.URL == "" {
		return result, nil
	}
	if result.DurationSeconds == 0 {
		result.DurationSeconds = ParseClockDuration(track.Duration)
	}

	content, err := a.download(ctx, track.URL)
	if err != nil {
		return nil, fmt.Errorf("download subtitle: %w", err)
	}

	cues := parseByFormat(content, subtitleFormat(track))
	result.Transcript = ReduceCues(cues, withTimestamp)
	return result, nil
}

func (a *YoutubeAdapter) extract(ctx context.Context, videoID string) (*savesubsExtractResp, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]any{
		"data": map[string]string{"url": "https://www.youtube.com/watch?v=" + videoID},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/action/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("X-Auth-Token", a.authToken)
	req.Header.Set("X-Requested-Domain", "savesubs.com")
	req.Header.Set("X-Requested-With", "xmlhttprequest")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract: status %d", resp.StatusCode)
	}

	var out savesubsExtractResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("extract: decode: %w", err)
	}
	return &out, nil
}

func (a *YoutubeAdapter) download(ctx context.Context, trackURL string) (string, error) {
	switch {
	case strings.HasPrefix(trackURL, "//"):
		trackURL = "https:" + trackURL
	case !strings.HasPrefix(trackURL, "http"):
		trackURL = a.baseURL + trackURL
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// pickYoutubeTrack prefers Chinese tracks, then English, then the first.
func pickYoutubeTrack(formats []savesubsFormat) savesubsFormat {
	for _, f := range formats {
		switch f.Lang {
		case "zh", "zh-Hans", "zh-Hant", "zh-CN", "zh-TW":
			return f
		}
	}
	for _, f := range formats {
		if f.Lang == "en" || f.Lang == "en-US" {
			return f
		}
	}
	return formats[0]
}

// subtitleFormat infers the file format from the track URL, falling back to
// the format the listing reported.
func subtitleFormat(track savesubsFormat) string {
	switch {
	case strings.Contains(track.URL, ".srt"):
		return "srt"
	case strings.Contains(track.URL, ".vtt"), strings.Contains(track.URL, ".webvtt"):
		return "vtt"
	case strings.Contains(track.URL, ".json"):
		return "json"
	}
	return strings.ToLower(track.Format)
}

func parseByFormat(content, format string) []Cue {
	switch format {
	case "srt":
		return ParseSRT(content)
	case "json":
		return ParseJSONCues(content)
	case "vtt", "webvtt":
		return ParseVTT(content)
	}
	// Unknown format: sniff.
	trimmed := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return ParseVTT(content)
	case strings.HasPrefix(trimmed, "["):
		return ParseJSONCues(content)
	default:
		return ParseSRT(content)
	}
}
