package botconfig

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"gopkg.in/yaml.v3"
)

// rawEntry mirrors the on-disk entry shape. The format tag is resolved to a
// closed domain.EntryFormat here, once, at load time.
type rawEntry struct {
	ID       string             `yaml:"id"`
	Format   string             `yaml:"format"`
	Category string             `yaml:"category"`
	Heading  string             `yaml:"heading"`
	Content  string             `yaml:"content"`
	Template string             `yaml:"template"`
	Items    []domain.EntryItem `yaml:"items"`
}

type dataFile struct {
	Entries []rawEntry `yaml:"entries"`
}

// LoadEntries loads all knowledge entries for a bot from data/*.yml, combined
// in file-name order. Entry order carries no retrieval meaning.
func (l *Loader) LoadEntries(botID string) ([]domain.KnowledgeEntry, error) {
	dir := filepath.Join(l.root, botID, "data")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, domain.ErrBotDataDirNotFound
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob data files: %w", err)
	}
	sort.Strings(paths)

	var entries []domain.KnowledgeEntry
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var file dataFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for _, raw := range file.Entries {
			format, ok := domain.ResolveEntryFormat(raw.Format)
			if !ok {
				log.Printf("warning: unknown format %q for entry %q in %s, treating as text", raw.Format, raw.ID, filepath.Base(path))
			}
			entries = append(entries, domain.KnowledgeEntry{
				ID:       raw.ID,
				Format:   format,
				Category: raw.Category,
				Heading:  raw.Heading,
				Content:  raw.Content,
				Template: raw.Template,
				Items:    raw.Items,
			})
		}
	}

	return entries, nil
}
