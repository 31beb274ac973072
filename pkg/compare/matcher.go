package compare

import (
	"fmt"

	"github.com/gobwas/glob"
)

// MessageFilter drops "CATEGORY:message" keys matching any ignore pattern.
type MessageFilter struct {
	patterns []glob.Glob
}

// NewMessageFilter compiles the ignore patterns.
func NewMessageFilter(patterns []string) (*MessageFilter, error) {
	f := &MessageFilter{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern '%s': %w", pattern, err)
		}
		f.patterns = append(f.patterns, g)
	}
	return f, nil
}

// Ignored reports whether key matches an ignore pattern.
func (f *MessageFilter) Ignored(key string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		if p.Match(key) {
			return true
		}
	}
	return false
}
