package stream

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/video-summary/backend/internal/subtitle"
)

// Encoder frames progress/metadata/error events and forwards raw summary
// content on one outbound stream. At most one metadata frame is emitted per
// request, and structured progress frames are suppressed once content has
// begun, upholding the frames-before-content protocol contract.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher

	metadataSent   bool
	contentStarted bool
	forwarded      int
}

// NewEncoder wraps an outbound writer. When w is an http.ResponseWriter that
// supports flushing, every frame and content chunk is flushed immediately.
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Progress emits a progress frame. Dropped silently once content has begun.
func (e *Encoder) Progress(stage Stage, message string, progress int) error {
	if e.contentStarted {
		return nil
	}
	return e.writeFrame(ProgressFrame{
		Type:     frameProgress,
		Stage:    stage,
		Message:  message,
		Progress: progress,
	})
}

// Metadata emits the metadata frame. Only the first call writes; repeats are
// deduplicated. Dropped once content has begun.
func (e *Encoder) Metadata(frame MetadataFrame) error {
	if e.contentStarted || e.metadataSent {
		return nil
	}
	e.metadataSent = true
	frame.Type = frameMetadata
	if frame.SubtitlesArray == nil {
		frame.SubtitlesArray = []subtitle.TranscriptItem{}
	}
	return e.writeFrame(frame)
}

// Error emits an error frame. Allowed at any point — a failure mid-stream
// must be signaled, never silently truncated.
func (e *Encoder) Error(err error, message string) error {
	if message == "" {
		message = err.Error()
	}
	return e.writeFrame(ErrorFrame{
		Type:         frameError,
		Error:        err.Error(),
		ErrorMessage: message,
	})
}

// Content forwards a chunk of provider output byte-for-byte. The very first
// chunks are suppressed while they still contain newlines, so a lone leading
// blank line from the provider never reaches the client.
func (e *Encoder) Content(text string) error {
	if text == "" {
		return nil
	}
	if e.forwarded < 2 && strings.Contains(text, "\n") {
		return nil
	}
	e.contentStarted = true
	e.forwarded++
	if _, err := io.WriteString(e.w, text); err != nil {
		return err
	}
	e.flush()
	return nil
}

// ContentStarted reports whether raw content bytes have been written.
func (e *Encoder) ContentStarted() bool {
	return e.contentStarted
}

func (e *Encoder) writeFrame(frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, "data: "+string(payload)+"\n\n"); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Encoder) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
