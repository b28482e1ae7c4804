package store

import (
	"path/filepath"
	"testing"

	"github.com/video-summary/backend/internal/subtitle"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetTranscript(t *testing.T) {
	s := openTestStore(t)
	ref := subtitle.VideoRef{Service: subtitle.ServiceBilibili, VideoID: "BV1xx"}
	start := 49.0
	res := &subtitle.AcquisitionResult{
		Title:           "测试视频",
		DurationSeconds: 120,
		Source:          subtitle.SourceSubtitle,
		Transcript: []subtitle.TranscriptItem{
			{Text: "[0:49] 第一段", Index: 0, StartSeconds: &start},
			{Text: "第二段", Index: 1},
		},
	}

	if err := s.SaveTranscript(ref, true, res); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTranscript(ref, true)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected cached result")
	}
	if got.Title != res.Title || got.DurationSeconds != res.DurationSeconds || got.Source != res.Source {
		t.Errorf("got %+v", got)
	}
	if len(got.Transcript) != 2 || got.Transcript[0].Text != "[0:49] 第一段" {
		t.Errorf("transcript = %+v", got.Transcript)
	}
	if got.Transcript[0].StartSeconds == nil || *got.Transcript[0].StartSeconds != 49 {
		t.Errorf("start seconds lost: %+v", got.Transcript[0])
	}
}

func TestGetTranscriptMiss(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetTranscript(subtitle.VideoRef{Service: subtitle.ServiceYoutube, VideoID: "absent"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got %+v", got)
	}
}

func TestSaveTranscriptUpsert(t *testing.T) {
	s := openTestStore(t)
	ref := subtitle.VideoRef{Service: subtitle.ServiceBilibili, VideoID: "BV1xx", PageNumber: "2"}

	first := &subtitle.AcquisitionResult{
		Title:      "old",
		Source:     subtitle.SourceSubtitle,
		Transcript: []subtitle.TranscriptItem{{Text: "a", Index: 0}},
	}
	second := &subtitle.AcquisitionResult{
		Title:      "new",
		Source:     subtitle.SourceAudio,
		Transcript: []subtitle.TranscriptItem{{Text: "b", Index: 0}},
	}
	if err := s.SaveTranscript(ref, false, first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTranscript(ref, false, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTranscript(ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "new" || got.Source != subtitle.SourceAudio {
		t.Errorf("upsert did not replace: %+v", got)
	}

	// Pages are cached independently.
	other, err := s.GetTranscript(subtitle.VideoRef{Service: subtitle.ServiceBilibili, VideoID: "BV1xx"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if other != nil {
		t.Errorf("page-less lookup should miss, got %+v", other)
	}
}

func TestGetTranscriptKeyedByTimestampFlag(t *testing.T) {
	s := openTestStore(t)
	ref := subtitle.VideoRef{Service: subtitle.ServiceBilibili, VideoID: "BV1xx"}
	start := 0.0
	stamped := &subtitle.AcquisitionResult{
		Title:      "测试视频",
		Source:     subtitle.SourceSubtitle,
		Transcript: []subtitle.TranscriptItem{{Text: "[0:00] 开场", Index: 0, StartSeconds: &start}},
	}
	if err := s.SaveTranscript(ref, true, stamped); err != nil {
		t.Fatal(err)
	}

	// Items bake in the timestamp rendering; a lookup with the opposite
	// setting must miss rather than serve the wrong rendering.
	got, err := s.GetTranscript(ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("timestamp-off lookup served timestamp-on items: %+v", got)
	}

	plain := &subtitle.AcquisitionResult{
		Title:      "测试视频",
		Source:     subtitle.SourceSubtitle,
		Transcript: []subtitle.TranscriptItem{{Text: "开场", Index: 0}},
	}
	if err := s.SaveTranscript(ref, false, plain); err != nil {
		t.Fatal(err)
	}

	// Both renderings coexist under the same video key.
	for _, tc := range []struct {
		withTimestamp bool
		wantText      string
	}{
		{true, "[0:00] 开场"},
		{false, "开场"},
	} {
		got, err := s.GetTranscript(ref, tc.withTimestamp)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || len(got.Transcript) != 1 || got.Transcript[0].Text != tc.wantText {
			t.Errorf("withTimestamp=%v: got %+v, want text %q", tc.withTimestamp, got, tc.wantText)
		}
	}
}

func TestSaveTranscriptSkipsEmpty(t *testing.T) {
	s := openTestStore(t)
	ref := subtitle.VideoRef{Service: subtitle.ServiceBilibili, VideoID: "BV1xx"}
	if err := s.SaveTranscript(ref, false, &subtitle.AcquisitionResult{Title: "no transcript"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetTranscript(ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("transcript-less result should not be cached, got %+v", got)
	}
}
