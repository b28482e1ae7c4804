package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
)

// ProcessingStatus is the client-visible state derived from the stream.
// Created as idle, mutated only by decoded frames; completed and error are
// terminal.
type ProcessingStatus struct {
	Stage    Stage  `json:"stage"`
	Message  string `json:"message"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Decoder incrementally parses the framed byte stream and drives the
// processing-stage state machine. It is a single sequential consumer: all
// methods must be called from one goroutine.
//
// Frame interpretation stops permanently once real content has been
// appended; from then on every line, data:-prefixed or not, is content. A
// data: line whose payload fails to JSON-decode is also reinterpreted as
// content — a known sharp edge of the wire format that is preserved for
// compatibility, not fixed.
type Decoder struct {
	buf     string // trailing partial line, prefixed onto the next chunk
	summary strings.Builder

	status       ProcessingStatus
	metadata     *MetadataFrame
	metadataSeen bool

	contentStarted bool
	skipBlank      bool
	edgeLogged     bool
}

func NewDecoder() *Decoder {
	return &Decoder{
		status: ProcessingStatus{Stage: StageIdle, Message: "等待开始..."},
	}
}

// Feed consumes one chunk of the stream. Complete lines are processed;
// a trailing partial line is buffered for the next call. No-op once the
// state machine is terminal.
func (d *Decoder) Feed(p []byte) {
	if d.terminal() {
		return
	}
	d.buf += string(p)
	lines := strings.Split(d.buf, "\n")
	d.buf = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		if d.terminal() {
			return
		}
		d.processLine(line)
	}
}

// Finish marks a normal stream close: the buffered trailing line (the
// stream need not end in a newline) is resolved as a frame or as content,
// then the state machine transitions to completed.
func (d *Decoder) Finish() {
	if d.terminal() {
		return
	}
	if line := d.buf; line != "" {
		d.buf = ""
		if d.contentStarted || !strings.HasPrefix(line, "data:") || !d.tryFrame(framePayload(line)) {
			d.summary.WriteString(line)
		}
	}
	if d.terminal() {
		// The trailing line was a complete error frame.
		return
	}
	d.status = ProcessingStatus{Stage: StageCompleted, Message: "总结生成完成", Progress: 100}
}

// Fail marks a transport failure. Already-applied state and accumulated
// content are preserved.
func (d *Decoder) Fail(err error) {
	if d.terminal() {
		return
	}
	d.buf = ""
	d.status.Stage = StageError
	d.status.Message = "处理失败"
	if err != nil {
		d.status.Error = err.Error()
	}
}

// Run consumes r until EOF, cancellation or failure.
func (d *Decoder) Run(ctx context.Context, r io.Reader) error {
	chunk := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			d.Fail(err)
			return err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			d.Feed(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.Finish()
				return nil
			}
			d.Fail(err)
			return err
		}
	}
}

func (d *Decoder) Status() ProcessingStatus { return d.status }
func (d *Decoder) Summary() string          { return d.summary.String() }
func (d *Decoder) Metadata() *MetadataFrame { return d.metadata }

func (d *Decoder) terminal() bool {
	return d.status.Stage == StageCompleted || d.status.Stage == StageError
}

func (d *Decoder) processLine(line string) {
	if d.skipBlank {
		d.skipBlank = false
		if line == "" {
			// Trailing blank of a consumed `data: <json>\n\n` frame.
			return
		}
	}

	if !d.contentStarted && strings.HasPrefix(line, "data:") {
		if d.tryFrame(framePayload(line)) {
			d.skipBlank = true
			return
		}
		if !d.edgeLogged {
			d.edgeLogged = true
			log.Printf("[decoder] data: line is not a valid frame, treating as content: %.60q", line)
		}
	}

	d.appendContent(line + "\n")
}

func framePayload(line string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
}

// tryFrame attempts to interpret payload as a structured frame. Returns
// false when the line must fall through to content.
func (d *Decoder) tryFrame(payload string) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return false
	}

	switch probe.Type {
	case frameProgress:
		var frame ProgressFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return false
		}
		d.status.Stage = frame.Stage
		d.status.Message = frame.Message
		if frame.Progress > 0 {
			d.status.Progress = frame.Progress
		}
		return true
	case frameMetadata:
		var frame MetadataFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return false
		}
		if !d.metadataSeen {
			d.metadataSeen = true
			d.metadata = &frame
		}
		return true
	case frameError:
		var frame ErrorFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return false
		}
		d.status.Stage = StageError
		d.status.Message = frame.ErrorMessage
		if d.status.Message == "" {
			d.status.Message = frame.Error
		}
		d.status.Error = frame.Error
		return true
	}
	// Valid JSON of an unknown type is still content.
	return false
}

func (d *Decoder) appendContent(text string) {
	d.summary.WriteString(text)
	d.contentStarted = true
	if d.status.Stage == StageGeneratingSummary {
		if p := estimateProgress(d.summary.Len()); p > d.status.Progress {
			d.status.Progress = p
		}
	}
}

// estimateProgress maps accumulated content length to a 60–95% progress
// value once summary generation is underway. A monotonically non-decreasing
// heuristic, not an exact measure.
func estimateProgress(contentLength int) int {
	p := 60 + contentLength*35/2000
	if p > 95 {
		p = 95
	}
	return p
}
