package handlers

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"

	"github.com/google/uuid"

	"github.com/video-summary/backend/internal/openai"
	"github.com/video-summary/backend/internal/stream"
	"github.com/video-summary/backend/internal/subtitle"
	"github.com/video-summary/backend/internal/summary"
)

// ResummarizeHandler regenerates a summary from a transcript the client
// already holds, skipping acquisition entirely.
type ResummarizeHandler struct {
	provider  *openai.Client
	byteLimit int
	rnd       *rand.Rand
}

func NewResummarizeHandler(provider *openai.Client, byteLimit int, rnd *rand.Rand) *ResummarizeHandler {
	return &ResummarizeHandler{provider: provider, byteLimit: byteLimit, rnd: rnd}
}

type resummarizeRequest struct {
	Title          string                    `json:"title,omitempty"`
	Duration       float64                   `json:"duration,omitempty"`
	SubtitlesArray []subtitle.TranscriptItem `json:"subtitlesArray"`
	VideoConfig    VideoConfig               `json:"videoConfig"`
	UserConfig     UserConfig                `json:"userConfig"`
	// CustomPrompt appends extra instructions to the summary request.
	CustomPrompt string `json:"customPrompt,omitempty"`
}

func (h *ResummarizeHandler) Resummarize(w http.ResponseWriter, r *http.Request) {
	var req resummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.SubtitlesArray) == 0 {
		jsonError(w, "暂无字幕数据，请先生成视频总结", http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()

	sseHeaders(w)
	enc := stream.NewEncoder(w)
	enc.Progress(stream.StageGeneratingSummary, "正在生成 AI 总结...", 60)

	inputText := summary.Compact(req.SubtitlesArray, req.SubtitlesArray, h.byteLimit, h.rnd)
	prompt := summary.StructuredSummary(summary.PromptOptions{
		Title:           req.Title,
		Transcript:      inputText,
		OutputLanguage:  req.VideoConfig.OutputLanguage,
		DurationSeconds: req.Duration,
		ByteLimit:       h.byteLimit,
	})
	if req.CustomPrompt != "" {
		prompt += "\n\nAdditional instructions from the user:\n" + req.CustomPrompt
	}

	st, err := h.provider.Stream(r.Context(), openai.ChatRequest{
		Messages:  []openai.Message{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens(req.VideoConfig.DetailLevel, req.UserConfig.UserKey),
		APIKey:    req.UserConfig.UserKey,
	})
	if err != nil {
		log.Printf("[resummarize] %s: provider request failed: %v", requestID, err)
		enc.Error(err, "AI 总结服务暂时不可用，请稍后重试")
		return
	}
	defer st.Close()

	// No metadata frame: the client supplied the transcript and already has
	// the title and duration.
	relayStream(enc, st, requestID)
}
