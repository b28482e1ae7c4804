package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/video-summary/backend/internal/api"
	"github.com/video-summary/backend/internal/audio"
	"github.com/video-summary/backend/internal/config"
	"github.com/video-summary/backend/internal/openai"
	"github.com/video-summary/backend/internal/random"
	"github.com/video-summary/backend/internal/store"
	"github.com/video-summary/backend/internal/subtitle"
	"github.com/video-summary/backend/internal/ytdlp"
)

func main() {
	cfg := config.Load()
	// The handlers, the OpenAI key pool and the bilibili session pool all
	// sample from this one Rand concurrently, so its source must be locked.
	rnd := random.NewLocked(time.Now().UnixNano())

	// Ensure data directory exists
	os.MkdirAll(cfg.DataPath, 0755)

	cache, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open transcript cache: %v", err)
	}
	defer cache.Close()

	provider := openai.NewClient(cfg.OpenAIKeys, cfg.OpenAIBaseURL, cfg.OpenAIModel, rnd)

	adapters := map[subtitle.Service]subtitle.Adapter{
		subtitle.ServiceBilibili: subtitle.NewBilibiliAdapter(cfg.BilibiliSessionTokens, rnd),
		subtitle.ServiceYoutube:  subtitle.NewYoutubeAdapter(cfg.SavesubsAuthToken),
		subtitle.ServiceDouyin:   subtitle.NewDouyinAdapter(),
	}
	transcriber := audio.NewTranscriber(openai.PickKey(rnd, cfg.OpenAIKeys), cfg.OpenAIBaseURL)
	fetcher := subtitle.NewFetcher(adapters, transcriber)

	if cfg.EnableAudioTranscription && !ytdlp.Available() {
		log.Println("WARNING: yt-dlp not found in PATH, audio transcription fallback disabled")
	}

	router := api.NewRouter(cfg, fetcher, provider, cache, rnd)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
