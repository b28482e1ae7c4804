package subtitle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestYoutubeFetchTranscript(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/action/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != "token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var payload struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Data.URL != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("extract url = %q", payload.Data.URL)
		}
		fmt.Fprint(w, `{"response":{"title":"Train Journey","duration_raw":"12:34","formats":[
			{"lang":"en","url":"/download/en.srt","format":"srt"},
			{"lang":"zh-Hans","url":"/download/zh.srt","format":"srt"}
		]}}`)
	})
	mux.HandleFunc("/download/zh.srt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "1\n00:00:01,000 --> 00:00:03,000\n第一句\n\n2\n00:00:04,000 --> 00:00:06,000\n第二句\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := NewYoutubeAdapter("token")
	a.baseURL = srv.URL

	got, err := a.FetchTranscript(context.Background(), VideoRef{Service: ServiceYoutube, VideoID: "abc123"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Train Journey" {
		t.Errorf("title = %q", got.Title)
	}
	if got.DurationSeconds != 754 {
		t.Errorf("duration = %v, want 754", got.DurationSeconds)
	}
	// Chinese track preferred over English.
	if !got.HasTranscript() || got.Transcript[0].Text != "第一句 第二句" {
		t.Errorf("transcript = %+v", got.Transcript)
	}
}

func TestYoutubeRequiresToken(t *testing.T) {
	a := NewYoutubeAdapter("")
	if _, err := a.FetchTranscript(context.Background(), VideoRef{VideoID: "abc"}, false); err == nil {
		t.Fatal("expected error without auth token")
	}
}

func TestPickYoutubeTrack(t *testing.T) {
	tests := []struct {
		name    string
		formats []savesubsFormat
		want    string
	}{
		{"chinese wins", []savesubsFormat{{Lang: "en"}, {Lang: "zh-Hans"}}, "zh-Hans"},
		{"english next", []savesubsFormat{{Lang: "fr"}, {Lang: "en"}}, "en"},
		{"first otherwise", []savesubsFormat{{Lang: "fr"}, {Lang: "de"}}, "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickYoutubeTrack(tt.formats); got.Lang != tt.want {
				t.Errorf("picked %q, want %q", got.Lang, tt.want)
			}
		})
	}
}

func TestSubtitleFormat(t *testing.T) {
	tests := []struct {
		track savesubsFormat
		want  string
	}{
		{savesubsFormat{URL: "/d/x.srt"}, "srt"},
		{savesubsFormat{URL: "/d/x.vtt"}, "vtt"},
		{savesubsFormat{URL: "/d/x.json"}, "json"},
		{savesubsFormat{URL: "/d/x", Format: "SRT"}, "srt"},
	}
	for _, tt := range tests {
		if got := subtitleFormat(tt.track); got != tt.want {
			t.Errorf("subtitleFormat(%+v) = %q, want %q", tt.track, got, tt.want)
		}
	}
}
