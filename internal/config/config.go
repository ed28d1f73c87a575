package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultQuestionsPerQuiz = 5

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
	Catalog struct {
		TTL  string `yaml:"ttl"`
		File string `yaml:"file"`
	} `yaml:"catalog"`
	Quiz struct {
		QuestionsPerQuiz int    `yaml:"questions_per_quiz"`
		Timezone         string `yaml:"timezone"`
	} `yaml:"quiz"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
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

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Location resolves quiz.timezone; the calendar day of every submission is taken in it.
func (c Config) Location() (*time.Location, error) {
	if c.Quiz.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Quiz.Timezone)
}

func (c Config) QuestionsPerQuiz() int {
	if c.Quiz.QuestionsPerQuiz <= 0 {
		return defaultQuestionsPerQuiz
	}
	return c.Quiz.QuestionsPerQuiz
}
