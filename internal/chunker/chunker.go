// Package chunker turns a bot's knowledge entries into retrievable text
// chunks, ready for embedding generation.
package chunker

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/botsmith-ai/botsmith/internal/domain"
)

// EntrySource provides a bot's raw knowledge entries.
type EntrySource interface {
	LoadEntries(botID string) ([]domain.KnowledgeEntry, error)
}

// Chunker renders knowledge entries into chunks. Data-quality problems in
// individual entries are logged and skipped; a missing entry ID is a
// configuration error and aborts the run.
type Chunker struct {
	source EntrySource
}

func New(source EntrySource) *Chunker {
	return &Chunker{source: source}
}

// Chunk loads and renders all knowledge entries for a bot. The returned
// chunks carry no embeddings.
func (c *Chunker) Chunk(botID string) ([]domain.Chunk, error) {
	entries, err := c.source.LoadEntries(botID)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			return nil, domain.ErrMissingEntryID
		}

		text := renderEntry(entry)
		if strings.TrimSpace(text) == "" {
			log.Printf("warning: entry %q for bot %q rendered empty, skipping", entry.ID, botID)
			continue
		}

		chunks = append(chunks, *domain.NewChunk(botID, entry.ID, entry.Category, entry.Heading, text))
	}

	return chunks, nil
}

func renderEntry(entry domain.KnowledgeEntry) string {
	switch entry.Format {
	case domain.FormatStructured:
		return renderStructured(entry)
	default:
		return renderText(entry)
	}
}

// renderText combines heading and content, joined by a blank line when both
// are present.
func renderText(entry domain.KnowledgeEntry) string {
	if entry.Heading != "" && entry.Content != "" {
		return entry.Heading + "\n\n" + entry.Content
	}
	if entry.Content != "" {
		return entry.Content
	}
	return entry.Heading
}

// renderStructured applies the entry's template to each item and joins the
// rendered lines under the shared heading. Items missing a template field are
// skipped, not fatal.
func renderStructured(entry domain.KnowledgeEntry) string {
	if entry.Template == "" || len(entry.Items) == 0 {
		log.Printf("warning: structured entry %q missing template or items", entry.ID)
		return entry.Heading
	}

	parts := make([]string, 0, len(entry.Items)+1)
	if entry.Heading != "" {
		parts = append(parts, entry.Heading)
	}

	for _, item := range entry.Items {
		line, err := renderTemplate(entry.Template, item)
		if err != nil {
			log.Printf("warning: entry %q: %v, skipping item", entry.ID, err)
			continue
		}
		parts = append(parts, line)
	}

	return strings.Join(parts, "\n")
}

var templateField = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// renderTemplate substitutes {field} placeholders with item values. A
// placeholder without a matching item field is an error.
func renderTemplate(template string, item domain.EntryItem) (string, error) {
	var missing string
	out := templateField.ReplaceAllStringFunc(template, func(match string) string {
		field := match[1 : len(match)-1]
		value, ok := item[field]
		if !ok {
			if missing == "" {
				missing = field
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("template field %q not found in item", missing)
	}
	return out, nil
}
