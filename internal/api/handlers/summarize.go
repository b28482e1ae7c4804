package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/video-summary/backend/internal/openai"
	"github.com/video-summary/backend/internal/store"
	"github.com/video-summary/backend/internal/stream"
	"github.com/video-summary/backend/internal/subtitle"
	"github.com/video-summary/backend/internal/summary"
)

// SummarizeHandler drives the full pipeline: transcript acquisition,
// compaction, prompt construction and the framed completion stream.
type SummarizeHandler struct {
	fetcher     *subtitle.Fetcher
	provider    *openai.Client
	cache       *store.Store // nil disables caching
	enableAudio bool
	byteLimit   int
	rnd         *rand.Rand
}

func NewSummarizeHandler(fetcher *subtitle.Fetcher, provider *openai.Client, cache *store.Store, enableAudio bool, byteLimit int, rnd *rand.Rand) *SummarizeHandler {
	return &SummarizeHandler{
		fetcher:     fetcher,
		provider:    provider,
		cache:       cache,
		enableAudio: enableAudio,
		byteLimit:   byteLimit,
		rnd:         rnd,
	}
}

type summarizeRequest struct {
	VideoConfig VideoConfig `json:"videoConfig"`
	UserConfig  UserConfig  `json:"userConfig"`
}

func (h *SummarizeHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.VideoConfig.VideoID == "" {
		jsonError(w, "No videoId in the request", http.StatusBadRequest)
		return
	}

	ref := subtitle.VideoRef{
		Service:    subtitle.Service(req.VideoConfig.Service),
		VideoID:    req.VideoConfig.VideoID,
		PageNumber: req.VideoConfig.PageNumber,
	}
	requestID := uuid.NewString()
	withTimestamp := req.UserConfig.ShouldShowTimestamp

	// Acquisition runs before any stream bytes so an unrecoverable failure
	// can still return a plain 400 body.
	result, cached := h.acquire(r, ref, withTimestamp)

	if !result.HasTranscript() && strings.TrimSpace(result.DescriptionText) == "" {
		log.Printf("[summarize] %s %s: no subtitle, description or transcription available", requestID, ref)
		jsonErrorDetail(w, "此视频暂无字幕或简介", noContentMessage(ref.Service, result.Source), http.StatusBadRequest)
		return
	}

	if h.cache != nil && !cached {
		if err := h.cache.SaveTranscript(ref, withTimestamp, result); err != nil {
			log.Printf("[summarize] %s %s: cache save failed: %v", requestID, ref, err)
		}
	}

	sseHeaders(w)
	enc := stream.NewEncoder(w)
	enc.Progress(stream.StageFetchingSubtitle, "正在提取视频字幕...", 10)
	if result.Source == subtitle.SourceAudio {
		enc.Progress(stream.StageTranscribingAudio, "正在转录音频为文字...", 40)
	} else {
		enc.Progress(stream.StageFetchingSubtitle, "字幕提取完成", 30)
	}

	inputText := result.DescriptionText
	if result.HasTranscript() {
		inputText = summary.Compact(result.Transcript, result.Transcript, h.byteLimit, h.rnd)
	}
	prompt := summary.StructuredSummary(summary.PromptOptions{
		Title:           result.Title,
		Transcript:      inputText,
		OutputLanguage:  req.VideoConfig.OutputLanguage,
		DurationSeconds: result.DurationSeconds,
		ByteLimit:       h.byteLimit,
	})

	enc.Progress(stream.StageGeneratingSummary, "正在生成 AI 总结...", 60)

	st, err := h.provider.Stream(r.Context(), openai.ChatRequest{
		Messages:  []openai.Message{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens(req.VideoConfig.DetailLevel, req.UserConfig.UserKey),
		APIKey:    req.UserConfig.UserKey,
	})
	if err != nil {
		log.Printf("[summarize] %s %s: provider request failed: %v", requestID, ref, err)
		enc.Error(err, "AI 总结服务暂时不可用，请稍后重试")
		return
	}
	defer st.Close()

	enc.Metadata(stream.MetadataFrame{
		Duration:       result.DurationSeconds,
		Title:          strings.TrimSpace(result.Title),
		SubtitlesArray: result.Transcript,
		SubtitleSource: string(result.Source),
	})

	relayStream(enc, st, requestID)
}

// acquire returns the transcript for ref, from cache when possible. Cached
// items carry the timestamp rendering, so only entries stored with the same
// setting qualify. The second return reports a cache hit.
func (h *SummarizeHandler) acquire(r *http.Request, ref subtitle.VideoRef, withTimestamp bool) (*subtitle.AcquisitionResult, bool) {
	if h.cache != nil {
		cached, err := h.cache.GetTranscript(ref, withTimestamp)
		if err != nil {
			log.Printf("[summarize] %s: cache lookup failed: %v", ref, err)
		} else if cached.HasTranscript() {
			return cached, true
		}
	}
	return h.fetcher.Fetch(r.Context(), ref, withTimestamp, h.enableAudio), false
}

// relayStream copies provider deltas onto the framed response until the
// stream ends. Mid-stream failures become an error frame, preserving the
// content already forwarded.
func relayStream(enc *stream.Encoder, st *openai.Stream, requestID string) {
	for {
		delta, err := st.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Printf("[summarize] %s: provider stream failed: %v", requestID, err)
			enc.Error(err, "生成总结时连接中断，请重试")
			return
		}
		if err := enc.Content(delta); err != nil {
			// Client went away; the provider stream is closed by the caller.
			return
		}
	}
}

// maxTokens picks the completion budget: an explicit detail level wins,
// otherwise user-supplied keys get a larger allowance than the shared pool.
func maxTokens(detailLevel int, userKey string) int {
	if detailLevel > 0 {
		return detailLevel
	}
	if userKey != "" {
		return 2000
	}
	return 1500
}

// noContentMessage renders the user-facing explanation for a video where the
// whole fallback chain came up empty.
func noContentMessage(service subtitle.Service, source subtitle.Source) string {
	audioTried := source == subtitle.SourceAudio
	switch service {
	case subtitle.ServiceDouyin:
		if audioTried {
			return "抱歉，该抖音视频没有字幕，且音频转文字失败。请检查服务器配置（需要安装 yt-dlp）或尝试其他视频。抖音视频通常需要音频转文字功能。"
		}
		return "抱歉，该抖音视频没有字幕或简介内容。请检查服务器配置（需要安装 yt-dlp 和 ffmpeg）或尝试其他视频。"
	case subtitle.ServiceYoutube:
		if audioTried {
			return "抱歉，该YouTube视频没有字幕，且音频转文字失败。请检查服务器配置（需要安装 yt-dlp）或尝试其他视频。"
		}
		return "抱歉，该YouTube视频没有字幕或简介内容。系统已尝试多种方法提取字幕和音频转文字，但均未成功。请检查服务器配置或尝试其他视频。"
	default:
		if audioTried {
			return "抱歉，该视频没有字幕，且音频转文字失败。请检查服务器配置（需要安装 yt-dlp）或尝试其他视频。"
		}
		return "抱歉，该视频没有字幕或简介内容。系统已尝试音频转文字，但未成功。请尝试其他视频或检查配置。"
	}
}
