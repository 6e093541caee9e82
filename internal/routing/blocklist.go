package routing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Blocklist is an immutable set of caller fragments. It is built once at
// startup and read concurrently without locking.
//
// Matching is deliberately loose: a caller is blocked when it contains any
// entry as a substring, so "+1900" blocks every +1-900 number.
type Blocklist struct {
	entries []string
}

// NewBlocklist trims, drops empties and de-duplicates entries.
func NewBlocklist(entries ...string) *Blocklist {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return &Blocklist{entries: out}
}

// blocklistFile is the on-disk shape:
//
//	blocked:
//	  - "+15555555555"
//	  - "+1900"
type blocklistFile struct {
	Blocked []string `yaml:"blocked"`
}

// LoadBlocklist merges inline entries with an optional YAML file.
// path may be empty.
func LoadBlocklist(inline []string, path string) (*Blocklist, error) {
	entries := append([]string(nil), inline...)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("routing: read blocklist: %w", err)
		}
		var f blocklistFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("routing: parse blocklist %s: %w", path, err)
		}
		entries = append(entries, f.Blocked...)
	}
	return NewBlocklist(entries...), nil
}

// Match returns the first entry contained in caller.
func (b *Blocklist) Match(caller string) (string, bool) {
	if b == nil || caller == "" {
		return "", false
	}
	for _, e := range b.entries {
		if strings.Contains(caller, e) {
			return e, true
		}
	}
	return "", false
}

func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
