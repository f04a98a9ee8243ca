package domain

// EntryFormat is the closed set of knowledge entry shapes. The format tag in
// the source YAML is resolved to one of these at load time; unknown tags fall
// back to FormatText.
type EntryFormat string

const (
	FormatText       EntryFormat = "text"
	FormatStructured EntryFormat = "structured"
)

// ResolveEntryFormat maps a raw format tag (including aliases) to an
// EntryFormat. The second return value reports whether the tag was recognized.
func ResolveEntryFormat(raw string) (EntryFormat, bool) {
	switch raw {
	case "", "text", "string":
		return FormatText, true
	case "structured", "object":
		return FormatStructured, true
	default:
		return FormatText, false
	}
}

// EntryItem is one record of a structured entry, rendered against the entry's
// template.
type EntryItem map[string]string

// KnowledgeEntry is the chunker's input unit, decoded from a bot's data files.
type KnowledgeEntry struct {
	ID       string      `yaml:"id"`
	Format   EntryFormat `yaml:"-"`
	Category string      `yaml:"category"`
	Heading  string      `yaml:"heading"`
	Content  string      `yaml:"content"`
	Template string      `yaml:"template"`
	Items    []EntryItem `yaml:"items"`
}
