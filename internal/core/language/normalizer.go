package language

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown is the bucket for heartbeats whose client could not detect a language.
const Unknown = "unknown"

// aliasFile is the on-disk YAML shape. Each file maps one canonical language
// name to the client-reported spellings that should fold into it.
type aliasFile struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

// Normalizer maps client-reported language names onto canonical ones so
// "golang", "Go" and "go" aggregate under a single key. Aliases are loaded
// once at startup from *.yaml files in a directory and cached in memory.
type Normalizer struct {
	dir     string
	aliases map[string]string // lowercased alias -> canonical
}

// NewNormalizer creates a normalizer and eagerly loads all alias files from
// dir. A missing directory is valid (zero aliases configured). Returns an
// error if any alias file is malformed.
func NewNormalizer(dir string) (*Normalizer, error) {
	n := &Normalizer{
		dir:     dir,
		aliases: make(map[string]string),
	}
	if err := n.load(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Normalizer) load() error {
	info, err := os.Stat(n.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("language alias dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("language alias path %q is not a directory", n.dir)
	}

	entries, err := os.ReadDir(n.dir)
	if err != nil {
		return fmt.Errorf("reading language alias dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(n.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading alias file %s: %w", path, err)
		}

		var raw aliasFile
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing alias file %s: %w", path, err)
		}
		if raw.Canonical == "" {
			continue // skip empty / comment-only files
		}

		for _, alias := range raw.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if existing, ok := n.aliases[key]; ok && existing != raw.Canonical {
				return fmt.Errorf("alias %q maps to both %q and %q", alias, existing, raw.Canonical)
			}
			n.aliases[key] = raw.Canonical
		}
		// The canonical name normalizes to itself regardless of casing.
		n.aliases[strings.ToLower(raw.Canonical)] = raw.Canonical
	}

	return nil
}

// Normalize returns the canonical name for a client-reported language.
// Unconfigured languages pass through lowercased; empty input maps to Unknown.
func (n *Normalizer) Normalize(language string) string {
	trimmed := strings.TrimSpace(language)
	if trimmed == "" {
		return Unknown
	}

	key := strings.ToLower(trimmed)
	if canonical, ok := n.aliases[key]; ok {
		return canonical
	}
	return key
}

// Count returns the number of configured alias mappings.
func (n *Normalizer) Count() int {
	return len(n.aliases)
}
