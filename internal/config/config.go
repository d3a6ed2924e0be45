package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	HTTP          struct {
		Listen string `json:"listen"`
	} `json:"http"`
	LLM struct {
		Provider        string `json:"provider"`
		BaseURL         string `json:"base_url"`
		APIKey          string `json:"api_key"`
		Model           string `json:"model"`
		MaxRetries      int    `json:"max_retries"`
		MaxPromptTokens int    `json:"max_prompt_tokens"`
	} `json:"llm"`
	Search struct {
		BaseURL string `json:"base_url"`
		APIKey  string `json:"api_key"`
	} `json:"search"`
	DeepResearch struct {
		BaseURL string `json:"base_url"`
		APIKey  string `json:"api_key"`
		AgentID string `json:"agent_id"`
	} `json:"deep_research"`
	Voice struct {
		CentsPerMinute int `json:"cents_per_minute"`
	} `json:"voice"`
	Analysis struct {
		SweepSchedule string `json:"sweep_schedule"`
	} `json:"analysis"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".sparring"),
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.HTTP.Listen = ":8080"
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o"
	cfg.LLM.MaxRetries = 3
	cfg.LLM.MaxPromptTokens = 8000
	cfg.Search.BaseURL = "https://api.firecrawl.dev"
	cfg.DeepResearch.BaseURL = "https://api.openai.com"
	cfg.Voice.CentsPerMinute = 30
	cfg.Analysis.SweepSchedule = "@every 10m"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
		if cfg.DeepResearch.APIKey == "" {
			cfg.DeepResearch.APIKey = apiKey
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if searchKey := os.Getenv("FIRECRAWL_API_KEY"); searchKey != "" {
		cfg.Search.APIKey = searchKey
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// Save writes the config atomically, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
