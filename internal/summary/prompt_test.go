package summary

import (
	"strings"
	"testing"
)

func TestStructuredSummaryLanguage(t *testing.T) {
	got := StructuredSummary(PromptOptions{Title: "t", Transcript: "hello"})
	if !strings.Contains(got, "in 中文 Language") {
		t.Errorf("default language should be 中文")
	}

	got = StructuredSummary(PromptOptions{Title: "t", Transcript: "hello", OutputLanguage: "English"})
	if !strings.Contains(got, "in English Language") {
		t.Errorf("explicit language not applied")
	}
}

func TestStructuredSummaryDurationConstraint(t *testing.T) {
	got := StructuredSummary(PromptOptions{Title: "t", Transcript: "hello", DurationSeconds: 754})
	if !strings.Contains(got, "total duration of 12:34 (754 seconds)") {
		t.Errorf("duration constraint missing or wrong:\n%s", got)
	}

	got = StructuredSummary(PromptOptions{Title: "t", Transcript: "hello"})
	if strings.Contains(got, "total duration") {
		t.Errorf("duration constraint present without a duration")
	}
}

func TestStructuredSummaryNewlineHandling(t *testing.T) {
	// Timestamped transcripts keep their line structure.
	got := StructuredSummary(PromptOptions{
		Title:      "t",
		Transcript: "[0:05] first line\n[0:10] second line",
	})
	if !strings.Contains(got, "[0:05] first line\n[0:10] second line") {
		t.Errorf("timestamped transcript lines were collapsed")
	}

	// Plain transcripts collapse newlines to spaces.
	got = StructuredSummary(PromptOptions{
		Title:      "t",
		Transcript: "first line\n\nsecond line",
	})
	if !strings.Contains(got, "first line second line") {
		t.Errorf("plain transcript newlines not collapsed")
	}
}

func TestStructuredSummaryEnforcesByteLimit(t *testing.T) {
	long := strings.Repeat("字幕内容", 5000)
	got := StructuredSummary(PromptOptions{Title: "t", Transcript: long, ByteLimit: 1000})
	if len(got) > 1000+4096 {
		t.Errorf("transcript not trimmed: prompt is %d bytes", len(got))
	}
}

func TestStructuredSummaryHeaders(t *testing.T) {
	got := StructuredSummary(PromptOptions{Title: "t", Transcript: "hello"})
	for _, header := range []string{"## 摘要", "## 亮点", "## 思考", "## 术语解释", "## 视频主题", "## 时间线总结"} {
		if !strings.Contains(got, header) {
			t.Errorf("missing section header %q", header)
		}
	}
}

func TestQASystemPrompt(t *testing.T) {
	got := QASystemPrompt("My Video", "[0:05] something happens")
	if !strings.Contains(got, "My Video") {
		t.Errorf("title missing from system prompt")
	}
	if !strings.Contains(got, "[0:05] something happens") {
		t.Errorf("transcript missing from system prompt")
	}

	got = QASystemPrompt("  ", "text")
	if !strings.Contains(got, "未知") {
		t.Errorf("blank title should render as 未知")
	}
}

func TestSecondsToClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{75, "1:15"},
		{754, "12:34"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		if got := SecondsToClock(tt.seconds); got != tt.want {
			t.Errorf("SecondsToClock(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
