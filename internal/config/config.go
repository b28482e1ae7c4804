package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port int

	OpenAIKeys    []string
	OpenAIBaseURL string
	OpenAIModel   string

	BilibiliSessionTokens []string
	SavesubsAuthToken     string

	EnableAudioTranscription bool
	TranscriptByteLimit      int

	DataPath string
	DBPath   string

	// AuthSecret enables the bearer-token gate on the API when non-empty.
	AuthSecret string

	CORSOrigins []string

	RateLimit float64
	RateBurst int
}

func Load() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	dataPath := getEnv("DATA_PATH", "./data")

	byteLimit, _ := strconv.Atoi(getEnv("TRANSCRIPT_BYTE_LIMIT", "6200"))

	rateLimit, _ := strconv.ParseFloat(getEnv("RATE_LIMIT", "5"), 64)
	rateBurst, _ := strconv.Atoi(getEnv("RATE_BURST", "10"))

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		corsOrigins = splitList(v)
	}

	return &Config{
		Port:                     port,
		OpenAIKeys:               splitList(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:            getEnv("OPENAI_API_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:              getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		BilibiliSessionTokens:    splitList(os.Getenv("BILIBILI_SESSION_TOKEN")),
		SavesubsAuthToken:        os.Getenv("SAVESUBS_X_AUTH_TOKEN"),
		EnableAudioTranscription: getEnv("ENABLE_AUDIO_TRANSCRIPTION", "true") != "false",
		TranscriptByteLimit:      byteLimit,
		DataPath:                 dataPath,
		DBPath:                   getEnv("DB_PATH", dataPath+"/summaries.db"),
		AuthSecret:               os.Getenv("AUTH_SECRET"),
		CORSOrigins:              corsOrigins,
		RateLimit:                rateLimit,
		RateBurst:                rateBurst,
	}
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
