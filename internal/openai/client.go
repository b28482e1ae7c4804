// Package openai is the completion-provider client: chat completions as a
// single response or an incremental token stream.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const (
	streamTimeout = 120 * time.Second
	singleTimeout = 60 * time.Second
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one completion call.
type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// APIKey overrides the client's key pool for this call (user-supplied
	// keys). Comma-separated pools are sampled.
	APIKey string
}

// Client talks to an OpenAI-compatible chat completions endpoint. Keys are
// sampled per request from the configured pool.
type Client struct {
	keys    []string
	baseURL string
	model   string
	rnd     *rand.Rand

	httpClient   *http.Client
	streamClient *http.Client
}

func NewClient(keys []string, baseURL, model string, rnd *rand.Rand) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		keys:         keys,
		baseURL:      strings.TrimRight(baseURL, "/"),
		model:        model,
		rnd:          rnd,
		httpClient:   &http.Client{Timeout: singleTimeout},
		streamClient: &http.Client{Timeout: streamTimeout},
	}
}

// PickKey selects one key from a pool. Pure function of the pool and the
// random source so key rotation is testable.
func PickKey(rnd *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	if rnd == nil {
		return pool[0]
	}
	return pool[rnd.Intn(len(pool))]
}

func (c *Client) requestKey(override string) string {
	if override != "" {
		return PickKey(c.rnd, strings.Split(override, ","))
	}
	return PickKey(c.rnd, c.keys)
}

type chatPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Complete performs a non-streaming completion and returns the full text.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Stream starts a streaming completion. The caller must Close the stream.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (*Stream, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{resp: resp, scanner: scanner}, nil
}

func (c *Client) send(ctx context.Context, req ChatRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(chatPayload{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.requestKey(req.APIKey))

	client := c.httpClient
	if stream {
		client = c.streamClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion provider request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	msg := resp.Status
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error.Message != "" {
			msg = parsed.Error.Message
		} else if parsed.Message != "" {
			msg = parsed.Message
		}
	}
	return fmt.Errorf("API error [%d %s]: %s", resp.StatusCode, http.StatusText(resp.StatusCode), msg)
}

// Stream yields content deltas from a streaming completion.
type Stream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	done    bool
}

// Recv returns the next non-empty content delta. io.EOF marks normal
// completion ([DONE] or connection close).
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}
		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("parse stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	s.done = true
	return "", io.EOF
}

func (s *Stream) Close() error {
	return s.resp.Body.Close()
}
