// Package config provides configuration helpers for voiceloop commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the voiceloop daemon.
const (
	DefaultPort        = "8090"
	DefaultLocale      = "en-US"
	DefaultHistoryFile = "history.json"
)

// Config holds the daemon configuration assembled from env vars and flags.
type Config struct {
	// AgentURL is the base URL of the remote conversational agent.
	AgentURL string

	// AgentAPIKey authenticates against the agent endpoint (optional).
	AgentAPIKey string

	// STTURL is the streaming speech-to-text WebSocket endpoint.
	// When empty, recognition runs through the browser bridge instead.
	STTURL string

	// Port is the HTTP/WebSocket gateway listen port.
	Port string

	// Locale is the BCP-47 tag used for recognition and synthesis.
	Locale string

	// VoiceLoop re-arms capture when playback ends (hands-free mode).
	VoiceLoop bool

	// HistoryPath is the chat history JSON file location.
	HistoryPath string

	// SubmitTimeout bounds a single agent submission.
	SubmitTimeout time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		AgentURL:      os.Getenv("AGENT_URL"),
		AgentAPIKey:   os.Getenv("AGENT_API_KEY"),
		STTURL:        os.Getenv("STT_URL"),
		Port:          Env("PORT", DefaultPort),
		Locale:        Env("VOICE_LOCALE", DefaultLocale),
		VoiceLoop:     EnvBool("VOICE_LOOP", false),
		HistoryPath:   Env("HISTORY_PATH", DefaultHistoryFile),
		SubmitTimeout: 30 * time.Second,
		LogLevel:      Env("LOG_LEVEL", "info"),
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.AgentURL == "" {
		return fmt.Errorf("config: AGENT_URL is required")
	}
	return nil
}

// Env returns the value of key, or fallback if unset or empty.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvBool returns the boolean value of key, or fallback if unset or invalid.
func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
