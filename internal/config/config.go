package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	AniList struct {
		URL string `yaml:"url"`
		TTL string `yaml:"ttl"`
	} `yaml:"anilist"`
	Telegram struct {
		Token      string `yaml:"token"`
		WebhookURL string `yaml:"webhook_url"`
		WebAppURL  string `yaml:"webapp_url"`
	} `yaml:"telegram"`
	Web struct {
		Dir string `yaml:"dir"`
	} `yaml:"web"`
	Game GameConfig `yaml:"game"`
}

// GameConfig holds the policy knobs of the round engine. Zero values fall back
// to the engine defaults, so a partial config file stays valid.
type GameConfig struct {
	TimerMin         int     `yaml:"timer_min"`
	TimerMax         int     `yaml:"timer_max"`
	RoundsChoices    []int   `yaml:"rounds_choices"`
	RoundsDefault    int     `yaml:"rounds_default"`
	ReadyFraction    float64 `yaml:"ready_fraction"`
	CountdownSeconds int     `yaml:"countdown_seconds"`
	FinalizeSlop     string  `yaml:"finalize_slop"`
	RematchTTL       string  `yaml:"rematch_ttl"`
	NoAnswerPenalty  *bool   `yaml:"no_answer_penalty"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
