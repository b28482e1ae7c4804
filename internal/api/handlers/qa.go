package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/video-summary/backend/internal/openai"
	"github.com/video-summary/backend/internal/summary"
)

// maxHistoryMessages bounds the conversation context sent to the provider
// (10 turns = 20 messages).
const maxHistoryMessages = 20

// QAHandler answers a single question over an already-acquired transcript.
// Stateless: the client sends the transcript and its own history each call.
type QAHandler struct {
	provider *openai.Client
}

func NewQAHandler(provider *openai.Client) *QAHandler {
	return &QAHandler{provider: provider}
}

type qaRequest struct {
	Question            string           `json:"question"`
	Subtitles           string           `json:"subtitles"`
	VideoTitle          string           `json:"videoTitle,omitempty"`
	UserKey             string           `json:"userKey,omitempty"`
	ConversationHistory []openai.Message `json:"conversationHistory,omitempty"`
}

func (h *QAHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "请输入问题", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Subtitles) == "" {
		jsonError(w, "暂无字幕数据，请先生成视频总结", http.StatusBadRequest)
		return
	}

	messages := []openai.Message{
		{Role: "system", Content: summary.QASystemPrompt(req.VideoTitle, req.Subtitles)},
	}
	history := req.ConversationHistory
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	messages = append(messages, history...)
	messages = append(messages, openai.Message{Role: "user", Content: req.Question})

	answer, err := h.provider.Complete(r.Context(), openai.ChatRequest{
		Messages:    messages,
		MaxTokens:   1000,
		Temperature: 0.7,
		APIKey:      req.UserKey,
	})
	if err != nil {
		log.Printf("[qa] provider request failed: %v", err)
		jsonError(w, "问答服务出错，请稍后重试", http.StatusInternalServerError)
		return
	}
	if answer == "" {
		answer = "抱歉，无法生成回答。"
	}

	jsonResponse(w, map[string]string{"answer": answer}, http.StatusOK)
}
