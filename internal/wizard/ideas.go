package wizard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/colorbook/internal/book"
	"github.com/jackzampolin/colorbook/internal/studio"
)

// IdeaFromStudio converts a generated idea. Unknown tags fall back to the
// defaults; a missing page count becomes the default page count.
func IdeaFromStudio(in studio.Idea) book.BookIdea {
	idea := book.NewBookIdea()
	idea.Title = strings.TrimSpace(in.Title)
	idea.Concept = strings.TrimSpace(in.Concept)
	if t, err := book.ParseBookType(in.BookType); err == nil {
		idea.Type = t
	}
	if m, err := book.ParseBookMode(in.BookMode); err == nil {
		idea.Mode = m
	}
	if a, err := book.ParseAudience(in.TargetAge); err == nil {
		idea.Audience = a
	}
	if in.PageCount > 0 {
		idea.PageCount = min(in.PageCount, book.MaxPageCount)
	}
	return idea
}

// ideasFile is the on-disk shape read by LoadIdeas.
type ideasFile struct {
	Ideas []book.BookIdea `yaml:"ideas"`
}

// LoadIdeas reads book ideas from a YAML file. Ideas without an explicit
// approved flag are treated as approved.
func LoadIdeas(path string) ([]book.BookIdea, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ideas file: %w", err)
	}
	return ParseIdeas(data)
}

// ParseIdeas decodes the YAML document read by LoadIdeas.
func ParseIdeas(data []byte) ([]book.BookIdea, error) {
	var raw struct {
		Ideas []yaml.Node `yaml:"ideas"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ideas file: %w", err)
	}

	out := make([]book.BookIdea, 0, len(raw.Ideas))
	for i := range raw.Ideas {
		node := &raw.Ideas[i]
		var idea book.BookIdea
		if err := node.Decode(&idea); err != nil {
			return nil, fmt.Errorf("idea %d: %w", i+1, err)
		}
		if !hasKey(node, "approved") {
			idea.Approved = true
		}
		n, err := normalizeIdea(idea)
		if err != nil {
			return nil, fmt.Errorf("idea %d: %w", i+1, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ideas file contains no ideas")
	}
	return out, nil
}

// WriteIdeas encodes ideas in the format read by LoadIdeas.
func WriteIdeas(ideas []book.BookIdea) ([]byte, error) {
	return yaml.Marshal(ideasFile{Ideas: ideas})
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// normalizeIdea fills ids and default tags and rejects unknown tags.
func normalizeIdea(idea book.BookIdea) (book.BookIdea, error) {
	if idea.ID == "" {
		idea.ID = book.NewID()
	}
	var err error
	if idea.Type, err = book.ParseBookType(string(idea.Type)); err != nil {
		return idea, err
	}
	if idea.Mode, err = book.ParseBookMode(string(idea.Mode)); err != nil {
		return idea, err
	}
	if idea.Audience, err = book.ParseAudience(string(idea.Audience)); err != nil {
		return idea, err
	}
	if idea.PageCount == 0 {
		idea.PageCount = book.DefaultPageCount
	}
	idea.Title = strings.TrimSpace(idea.Title)
	idea.Concept = strings.TrimSpace(idea.Concept)
	return idea, nil
}
