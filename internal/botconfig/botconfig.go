// Package botconfig loads per-bot configuration, prompts, and knowledge data
// from the bots directory. Layout: <root>/<bot_id>/{config.yml,prompt.yml,data/}.
package botconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.4
	DefaultPersonality         = "friendly"
)

// RAGConfig holds a bot's retrieval defaults.
type RAGConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// BotConfig is a bot's serving configuration from config.yml.
type BotConfig struct {
	Enabled     bool      `yaml:"enabled"`
	Name        string    `yaml:"name"`
	Personality string    `yaml:"personality"`
	RAG         RAGConfig `yaml:"rag"`
	Suggestions []string  `yaml:"-"`
}

type configFile struct {
	Bot         BotConfig `yaml:"bot"`
	Suggestions []string  `yaml:"suggestions"`
}

type promptFile struct {
	Prompt string `yaml:"prompt"`
}

// Loader reads bot configuration from a root directory.
type Loader struct {
	root string
}

func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// ListBots returns the IDs of all bots under the root directory, sorted.
// A bot is any subdirectory containing a config.yml.
func (l *Loader) ListBots() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read bots directory %s: %w", l.root, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.root, e.Name(), "config.yml")); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadConfig loads a bot's config.yml and applies retrieval defaults.
func (l *Loader) LoadConfig(botID string) (*BotConfig, error) {
	path := filepath.Join(l.root, botID, "config.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrBotConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := file.Bot
	cfg.Suggestions = file.Suggestions
	if cfg.Name == "" {
		cfg.Name = botID
	}
	if cfg.Personality == "" {
		cfg.Personality = DefaultPersonality
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.SimilarityThreshold <= 0 {
		cfg.RAG.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &cfg, nil
}

// LoadPrompt loads a bot's system prompt template from prompt.yml. Date
// placeholder substitution is the caller's concern.
func (l *Loader) LoadPrompt(botID string) (string, error) {
	path := filepath.Join(l.root, botID, "prompt.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrPromptNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if file.Prompt == "" {
		return "", domain.ErrPromptNotFound
	}
	return file.Prompt, nil
}
