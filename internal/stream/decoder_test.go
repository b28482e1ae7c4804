package stream

import (
	"strings"
	"testing"
)

func TestDecoderProgressThenContent(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: {\"type\":\"progress\",\"stage\":\"fetching_subtitle\",\"message\":\"x\",\"progress\":10}\n\nhello"))

	if got := d.Status().Stage; got != StageFetchingSubtitle {
		t.Errorf("stage = %q, want fetching_subtitle", got)
	}
	if got := d.Status().Progress; got != 10 {
		t.Errorf("progress = %d, want 10", got)
	}
	d.Finish()
	if got := d.Summary(); got != "hello" {
		t.Errorf("summary = %q, want %q", got, "hello")
	}
}

func TestDecoderMalformedFrameIsContent(t *testing.T) {
	// A data:-prefixed line that is not valid JSON falls through to content,
	// blank line included.
	d := NewDecoder()
	d.Feed([]byte("data: not-json\n\nworld"))
	d.Finish()
	if got := d.Summary(); got != "data: not-json\n\nworld" {
		t.Errorf("summary = %q, want %q", got, "data: not-json\n\nworld")
	}
}

func TestDecoderUnknownFrameTypeIsContent(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: {\"type\":\"mystery\"}\nafter"))
	d.Finish()
	if got := d.Summary(); got != "data: {\"type\":\"mystery\"}\nafter" {
		t.Errorf("summary = %q", got)
	}
}

func TestDecoderMetadata(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(`data: {"type":"metadata","title":"My Video","duration":120,"subtitlesArray":[{"text":"a","index":0}],"subtitleSource":"subtitle"}` + "\n\n"))

	meta := d.Metadata()
	if meta == nil {
		t.Fatal("metadata not captured")
	}
	if meta.Title != "My Video" || meta.Duration != 120 {
		t.Errorf("metadata = %+v", meta)
	}
	if len(meta.SubtitlesArray) != 1 || meta.SubtitlesArray[0].Text != "a" {
		t.Errorf("subtitlesArray = %+v", meta.SubtitlesArray)
	}

	// A second metadata frame is consumed but ignored.
	d.Feed([]byte(`data: {"type":"metadata","title":"Other"}` + "\n\n"))
	if d.Metadata().Title != "My Video" {
		t.Errorf("second metadata frame overwrote the first")
	}
	if d.Summary() != "" {
		t.Errorf("metadata frames leaked into content: %q", d.Summary())
	}
}

func TestDecoderErrorFrame(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(`data: {"type":"error","error":"boom","errorMessage":"it broke"}` + "\n\n"))

	st := d.Status()
	if st.Stage != StageError {
		t.Fatalf("stage = %q, want error", st.Stage)
	}
	if st.Message != "it broke" || st.Error != "boom" {
		t.Errorf("status = %+v", st)
	}
}

func TestDecoderTerminalStatesFrozen(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(`data: {"type":"error","error":"boom","errorMessage":"it broke"}` + "\n\n"))
	before := d.Status()

	d.Feed([]byte("data: {\"type\":\"progress\",\"stage\":\"generating_summary\",\"message\":\"y\",\"progress\":60}\n\nmore"))
	d.Finish()
	if d.Status() != before {
		t.Errorf("terminal error state mutated: %+v", d.Status())
	}

	d = NewDecoder()
	d.Finish()
	d.Feed([]byte("late content\n"))
	if d.Status().Stage != StageCompleted || d.Summary() != "" {
		t.Errorf("completed state accepted input afterwards")
	}
}

func TestDecoderFinish(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: {\"type\":\"progress\",\"stage\":\"generating_summary\",\"message\":\"x\",\"progress\":60}\n\nsummary text"))
	d.Finish()

	st := d.Status()
	if st.Stage != StageCompleted {
		t.Errorf("stage = %q, want completed", st.Stage)
	}
	if st.Progress != 100 {
		t.Errorf("progress = %d, want 100", st.Progress)
	}
	if st.Message != "总结生成完成" {
		t.Errorf("message = %q", st.Message)
	}
	if d.Summary() != "summary text" {
		t.Errorf("summary = %q", d.Summary())
	}
}

func TestDecoderChunkedAcrossFrameBoundary(t *testing.T) {
	d := NewDecoder()
	full := "data: {\"type\":\"progress\",\"stage\":\"fetching_subtitle\",\"message\":\"x\",\"progress\":10}\n\ncontent here"
	for i := 0; i < len(full); i += 7 {
		end := i + 7
		if end > len(full) {
			end = len(full)
		}
		d.Feed([]byte(full[i:end]))
	}
	d.Finish()
	if d.Summary() != "content here" {
		t.Errorf("summary = %q", d.Summary())
	}
}

func TestDecoderProgressEstimate(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: {\"type\":\"progress\",\"stage\":\"generating_summary\",\"message\":\"x\",\"progress\":60}\n\n"))

	d.Feed([]byte(strings.Repeat("a", 2000) + "\n"))
	if got := d.Status().Progress; got < 60 || got > 95 {
		t.Errorf("estimate out of range: %d", got)
	}

	d.Feed([]byte(strings.Repeat("a", 100000) + "\n"))
	if got := d.Status().Progress; got != 95 {
		t.Errorf("estimate should cap at 95, got %d", got)
	}
}

func TestDecoderFail(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: {\"type\":\"progress\",\"stage\":\"generating_summary\",\"message\":\"x\",\"progress\":60}\n\npartial summary\n"))
	d.Fail(errStub("connection reset"))

	st := d.Status()
	if st.Stage != StageError {
		t.Errorf("stage = %q, want error", st.Stage)
	}
	if d.Summary() != "partial summary\n" {
		t.Errorf("accumulated content discarded on failure: %q", d.Summary())
	}
}

type errStub string

func (e errStub) Error() string { return string(e) }

func TestEstimateProgress(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 60},
		{2000, 95},
		{1000, 77},
		{1000000, 95},
	}
	for _, tt := range tests {
		if got := estimateProgress(tt.length); got != tt.want {
			t.Errorf("estimateProgress(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}
