package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/video-summary/backend/internal/random"
)

func TestPickKey(t *testing.T) {
	tests := []struct {
		name string
		pool []string
		want string
	}{
		{"empty pool", nil, ""},
		{"single key", []string{"sk-a"}, "sk-a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickKey(rand.New(rand.NewSource(1)), tt.pool); got != tt.want {
				t.Errorf("PickKey = %q, want %q", got, tt.want)
			}
		})
	}

	// Sampling stays inside the pool.
	pool := []string{"sk-a", "sk-b", "sk-c"}
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		got := PickKey(rnd, pool)
		found := false
		for _, k := range pool {
			if k == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("PickKey returned %q, not in pool", got)
		}
	}
}

func TestPickKeyConcurrent(t *testing.T) {
	// The server wires one Rand into every component, so concurrent requests
	// sample the key pool through it simultaneously.
	rnd := random.NewLocked(1)
	pool := []string{"sk-a", "sk-b", "sk-c"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				got := PickKey(rnd, pool)
				if got != "sk-a" && got != "sk-b" && got != "sk-c" {
					t.Errorf("PickKey returned %q, not in pool", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCompleteSendsPayloadAndKey(t *testing.T) {
	var gotAuth string
	var gotPayload chatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"the answer"}}]}`)
	}))
	defer srv.Close()

	c := NewClient([]string{"sk-pool"}, srv.URL, "gpt-4o-mini", nil)
	got, err := c.Complete(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "the answer" {
		t.Errorf("content = %q", got)
	}
	if gotAuth != "Bearer sk-pool" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPayload.Model != "gpt-4o-mini" || gotPayload.MaxTokens != 1000 || gotPayload.Stream {
		t.Errorf("payload = %+v", gotPayload)
	}
}

func TestCompleteUserKeyOverride(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClient([]string{"sk-pool"}, srv.URL, "", nil)
	if _, err := c.Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		APIKey:   "sk-user",
	}); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer sk-user" {
		t.Errorf("user key not used: %q", gotAuth)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	c := NewClient(nil, srv.URL, "", nil)
	_, err := c.Complete(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("error should carry the provider message: %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestStreamRecv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hello", ", ", "world"}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		// Empty delta and role-only chunk are skipped.
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient([]string{"sk"}, srv.URL, "", nil)
	st, err := c.Stream(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	var got strings.Builder
	for {
		delta, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got.WriteString(delta)
	}
	if got.String() != "Hello, world" {
		t.Errorf("streamed content = %q", got.String())
	}

	// Recv after EOF keeps returning EOF.
	if _, err := st.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after done, got %v", err)
	}
}

func TestStreamEndsWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"only\"}}]}\n\n")
	}))
	defer srv.Close()

	c := NewClient([]string{"sk"}, srv.URL, "", nil)
	st, err := c.Stream(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if delta, err := st.Recv(); err != nil || delta != "only" {
		t.Fatalf("first Recv = %q, %v", delta, err)
	}
	if _, err := st.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("connection close should read as EOF, got %v", err)
	}
}

func TestClientDefaults(t *testing.T) {
	c := NewClient(nil, "", "", nil)
	if c.baseURL != "https://api.openai.com/v1" {
		t.Errorf("default base URL = %q", c.baseURL)
	}
	if c.model != "gpt-4o-mini" {
		t.Errorf("default model = %q", c.model)
	}
	c = NewClient(nil, "https://proxy.example.com/v1/", "m", nil)
	if c.baseURL != "https://proxy.example.com/v1" {
		t.Errorf("trailing slash not trimmed: %q", c.baseURL)
	}
}
