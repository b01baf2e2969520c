package manifest

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError reports a schema violation at a specific key path. Any
// violation aborts the sync cycle before I/O; a Manifest is either produced
// whole or not at all.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest: %s: %s", e.Path, e.Reason)
}

func invalid(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes and validates a manifest document. Unknown top-level keys and
// mistyped fields are rejected at the decode boundary.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, invalid("(document)", "%v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	if m.Startup.ServerPort != nil && *m.Startup.ServerPort <= 0 {
		return invalid("startup.server_port", "must be a positive integer, got %d", *m.Startup.ServerPort)
	}
	if m.Startup.Game == "" {
		return invalid("startup.game", "is required")
	}
	if len(m.Games) == 0 {
		return invalid("games", "at least one game is required")
	}
	if _, ok := m.Games[m.Startup.Game]; !ok {
		return invalid("startup.game", "%q is not declared under games", m.Startup.Game)
	}

	for name, game := range m.Games {
		if !KnownGameType(GameType(name)) {
			return invalid("games."+name, "unknown game type")
		}
		for _, key := range game.declared {
			if !legalDirective(GameType(name), key) {
				return invalid(fmt.Sprintf("games.%s.%s", name, key), "not a legal field for %s", name)
			}
		}
	}

	roots := make(map[string]string, len(m.Paths))
	for remotePath, rule := range m.Paths {
		keyPath := fmt.Sprintf("paths[%s]", remotePath)
		if remotePath == "" {
			return invalid("paths", "empty remote path")
		}
		if rule.Root == "" {
			return invalid(keyPath+".root", "is required")
		}
		root := path.Clean(strings.ReplaceAll(rule.Root, "\\", "/"))
		if path.IsAbs(root) || root == ".." || strings.HasPrefix(root, "../") {
			return invalid(keyPath+".root", "%q escapes the game-data root", rule.Root)
		}
		if !rule.IsDir && (len(rule.Exclude) > 0 || rule.DeleteOthers) {
			return invalid(keyPath, "exclude and delete_others require is_dir")
		}
		roots[remotePath] = root
	}

	// Overlapping roots make delete_others ambiguous: one rule could remove
	// files another rule owns.
	keys := make([]string, 0, len(roots))
	for k := range roots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if rootsOverlap(roots[a], roots[b]) {
				return invalid(fmt.Sprintf("paths[%s].root", b),
					"%q overlaps root %q of paths[%s]", roots[b], roots[a], a)
			}
		}
	}

	return nil
}

func legalDirective(t GameType, key string) bool {
	switch t {
	case Vanilla, NeoForge:
		return key == "mc_version"
	case Fabric, Quilt:
		return key == "mc_version" || key == "loader_version"
	case Forge:
		return key == "mc_version" || key == "forge_version"
	}
	return false
}

func rootsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	// "." is the data root itself and contains every other root.
	if a == "." || b == "." {
		return true
	}
	return strings.HasPrefix(b, a+"/") || strings.HasPrefix(a, b+"/")
}
