// Package config loads service settings from an optional YAML file and the
// environment.  Environment variables use the upper-cased key with dots
// replaced by underscores, so llm.api_key is read from LLM_API_KEY.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved service configuration.
type Config struct {
	Port        string
	CORSOrigins []string
	DatabaseURL string
	Version     string

	LLM struct {
		APIURL        string
		APIKey        string
		Model         string
		Temperature   float32
		MaxTokens     int
		Timeout       time.Duration
		StreamTimeout time.Duration
	}
	Whisper struct {
		APIURL   string
		APIKey   string
		Model    string
		Language string
	}
	ElevenLabs struct {
		APIKey  string
		VoiceID string
		AgentID string
		Model   string
	}
	Crisis struct {
		LexiconFile  string
		AlertChannel string
	}
	Store struct {
		HistoryLimit int
		IdleTTL      time.Duration
		SweepEvery   time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	MaxAudioBytes int64
}

// New returns a viper instance with defaults and env binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("cors_origins", "")
	v.SetDefault("database_url", "")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("max_audio_bytes", 10<<20)

	v.SetDefault("llm.api_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.stream_timeout", 60*time.Second)

	v.SetDefault("whisper.api_url", "https://api.openai.com/v1")
	v.SetDefault("whisper.api_key", "")
	v.SetDefault("whisper.model", "whisper-1")
	v.SetDefault("whisper.language", "vi")

	v.SetDefault("elevenlabs.api_key", "")
	v.SetDefault("elevenlabs.voice_id", "")
	v.SetDefault("elevenlabs.agent_id", "")
	v.SetDefault("elevenlabs.model", "eleven_multilingual_v2")

	v.SetDefault("crisis.lexicon_file", "")
	v.SetDefault("crisis.alert_channel", "crisis_alerts")

	v.SetDefault("store.history_limit", 20)
	v.SetDefault("store.idle_ttl", 24*time.Hour)
	v.SetDefault("store.sweep_every", 10*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	return v
}

// Load reads path (when non-empty) into v and resolves the Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c := &Config{
		Port:          v.GetString("port"),
		CORSOrigins:   splitList(v.GetString("cors_origins")),
		DatabaseURL:   v.GetString("database_url"),
		Version:       v.GetString("version"),
		MaxAudioBytes: v.GetInt64("max_audio_bytes"),
	}
	c.LLM.APIURL = v.GetString("llm.api_url")
	c.LLM.APIKey = v.GetString("llm.api_key")
	c.LLM.Model = v.GetString("llm.model")
	c.LLM.Temperature = float32(v.GetFloat64("llm.temperature"))
	c.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	c.LLM.Timeout = v.GetDuration("llm.timeout")
	c.LLM.StreamTimeout = v.GetDuration("llm.stream_timeout")

	c.Whisper.APIURL = v.GetString("whisper.api_url")
	c.Whisper.APIKey = v.GetString("whisper.api_key")
	c.Whisper.Model = v.GetString("whisper.model")
	c.Whisper.Language = v.GetString("whisper.language")
	// Whisper shares the chat key unless given its own.
	if c.Whisper.APIKey == "" {
		c.Whisper.APIKey = c.LLM.APIKey
	}

	c.ElevenLabs.APIKey = v.GetString("elevenlabs.api_key")
	c.ElevenLabs.VoiceID = v.GetString("elevenlabs.voice_id")
	c.ElevenLabs.AgentID = v.GetString("elevenlabs.agent_id")
	c.ElevenLabs.Model = v.GetString("elevenlabs.model")

	c.Crisis.LexiconFile = v.GetString("crisis.lexicon_file")
	c.Crisis.AlertChannel = v.GetString("crisis.alert_channel")

	c.Store.HistoryLimit = v.GetInt("store.history_limit")
	c.Store.IdleTTL = v.GetDuration("store.idle_ttl")
	c.Store.SweepEvery = v.GetDuration("store.sweep_every")

	c.Log.Level = v.GetString("log.level")
	c.Log.Format = v.GetString("log.format")

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.Store.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("store.history_limit must be positive, got %d", c.Store.HistoryLimit))
	}
	if c.MaxAudioBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_audio_bytes must be positive, got %d", c.MaxAudioBytes))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Logger builds the process logger described by c.Log.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
