package tags

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/constituent-import/internal/types"
)

// Split breaks a raw comma-separated tag string into trimmed, non-empty,
// de-duplicated tags in first-seen order.
func Split(raw string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ResolveList maps each raw tag onto its canonical name. Unmapped tags keep
// their original name. The result is de-duplicated again because distinct
// raw tags may share a canonical tag.
func ResolveList(raw string, mapping Mapping) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, tag := range Split(raw) {
		if canonical, ok := mapping[tag]; ok {
			tag = canonical
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Resolve returns the canonical tag string joined with ", ". Blank input
// yields "".
func Resolve(raw string, mapping Mapping) string {
	return strings.Join(ResolveList(raw, mapping), ", ")
}

// =============================================================================
// TAG FREQUENCY
// =============================================================================

// Counter accumulates how many constituents carry each canonical tag.
type Counter struct {
	counts map[string]int
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add counts one constituent's resolved tags. Each tag is counted once per
// call regardless of repetition in resolved.
func (c *Counter) Add(resolved []string) {
	seen := make(map[string]struct{}, len(resolved))
	for _, tag := range resolved {
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		c.counts[tag]++
	}
}

// Entries returns the report sorted by tag name ascending.
func (c *Counter) Entries() []types.TagCountEntry {
	entries := make([]types.TagCountEntry, 0, len(c.counts))
	for name, count := range c.counts {
		entries = append(entries, types.TagCountEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// CountTags builds the tag-frequency report over raw tag strings.
func CountTags(rawTags []string, mapping Mapping) []types.TagCountEntry {
	counter := NewCounter()
	for _, raw := range rawTags {
		counter.Add(ResolveList(raw, mapping))
	}
	return counter.Entries()
}
