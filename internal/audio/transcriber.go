// Package audio implements the audio-transcription fallback: download the
// audio track with yt-dlp, transcribe it through the OpenAI Whisper API and
// normalize the VTT output into transcript items.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/video-summary/backend/internal/subtitle"
	"github.com/video-summary/backend/internal/ytdlp"
)

const maxUploadSize = 25 * 1024 * 1024 // Whisper API file limit

// Transcriber downloads audio and transcribes it via the hosted Whisper API.
// Implements subtitle.AudioTranscriber.
type Transcriber struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewTranscriber(apiKey, baseURL string) *Transcriber {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Transcriber{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   "whisper-1",
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Available probes for yt-dlp. An API key is also required; without it the
// fallback is reported unavailable so the chain skips straight to synthesis.
func (t *Transcriber) Available() bool {
	return t.apiKey != "" && ytdlp.Available()
}

func (t *Transcriber) Transcribe(ctx context.Context, ref subtitle.VideoRef, withTimestamp bool) (*subtitle.AcquisitionResult, error) {
	audioPath, meta, err := ytdlp.DownloadAudio(ctx, ref.URL())
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer os.RemoveAll(filepath.Dir(audioPath))

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxUploadSize {
		return nil, fmt.Errorf("audio file too large for transcription: %d bytes", info.Size())
	}

	log.Printf("[audio] %s: transcribing %s (%d bytes)", ref, filepath.Base(audioPath), info.Size())
	vtt, err := t.transcribeFile(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	cues := subtitle.ParseVTT(vtt)
	items := subtitle.ReduceCues(cues, withTimestamp)
	if len(items) == 0 {
		return nil, fmt.Errorf("transcription produced no text")
	}

	duration := meta.Duration
	if duration == 0 {
		duration = probeDuration(ctx, audioPath)
	}

	return &subtitle.AcquisitionResult{
		Title:           meta.Title,
		Transcript:      items,
		DescriptionText: meta.Description,
		DurationSeconds: duration,
		Source:          subtitle.SourceAudio,
	}, nil
}

// transcribeFile uploads one audio file and returns VTT content.
func (t *Transcriber) transcribeFile(ctx context.Context, audioPath string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return "", err
	}
	writer.WriteField("model", t.model)
	writer.WriteField("response_format", "vtt")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body))
	}

	vtt := string(body)
	if !strings.HasPrefix(strings.TrimSpace(vtt), "WEBVTT") {
		vtt = "WEBVTT\n\n" + vtt
	}
	return vtt, nil
}
