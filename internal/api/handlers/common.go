package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// jsonErrorDetail writes the two-field error body used by the summarize
// endpoints: a stable short error plus a human-readable message.
func jsonErrorDetail(w http.ResponseWriter, errCode, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":        errCode,
		"errorMessage": message,
	})
}

// VideoConfig identifies the video and the requested summary shape.
type VideoConfig struct {
	Service        string `json:"service"`
	VideoID        string `json:"videoId"`
	PageNumber     string `json:"pageNumber,omitempty"`
	OutputLanguage string `json:"outputLanguage,omitempty"`
	// DetailLevel overrides the completion token budget when positive.
	DetailLevel int `json:"detailLevel,omitempty"`
}

// UserConfig carries per-user options, including an optional user-supplied
// API key that unlocks a larger token budget.
type UserConfig struct {
	UserKey             string `json:"userKey,omitempty"`
	ShouldShowTimestamp bool   `json:"shouldShowTimestamp,omitempty"`
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
