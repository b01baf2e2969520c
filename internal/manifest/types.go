package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// GameType is one of the supported game flavors declared under "games".
type GameType string

const (
	Vanilla  GameType = "vanilla"
	Fabric   GameType = "fabric"
	Quilt    GameType = "quilt"
	Forge    GameType = "forge"
	NeoForge GameType = "neoforge"
)

func KnownGameType(t GameType) bool {
	switch t {
	case Vanilla, Fabric, Quilt, Forge, NeoForge:
		return true
	}
	return false
}

// Startup selects the active game and carries the auto-join target. A nil
// ServerPort means the port was absent or null, which is legal; an explicit
// value must be positive.
type Startup struct {
	ServerIP   string `yaml:"server_ip"`
	ServerPort *int   `yaml:"server_port"`
	Game       string `yaml:"game"`
}

// Port returns the declared server port, or zero when absent.
func (s *Startup) Port() int {
	if s.ServerPort != nil {
		return *s.ServerPort
	}
	return 0
}

// Game holds the raw version directives for one game type. Empty string means
// the directive was null or absent; downstream code never re-interprets YAML
// null/empty/absent distinctions.
type Game struct {
	McVersion     string
	LoaderVersion string
	ForgeVersion  string

	// keys declared in the document, kept for per-type legality checks
	declared []string
	// keys declared with an explicit null value; null and absent directives
	// behave differently from empty strings for forge resolution
	nulls []string
}

func (g *Game) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		val := value.Content[i+1]
		var s string
		isNull := val.Tag == "!!null"
		if !isNull {
			if err := val.Decode(&s); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
		switch key {
		case "mc_version":
			g.McVersion = s
		case "loader_version":
			g.LoaderVersion = s
		case "forge_version":
			g.ForgeVersion = s
		default:
			return fmt.Errorf("unknown field %q", key)
		}
		g.declared = append(g.declared, key)
		if isNull {
			g.nulls = append(g.nulls, key)
		}
	}
	return nil
}

// Declared reports whether the directive key was present in the document,
// even with a null value.
func (g *Game) Declared(key string) bool {
	return contains(g.declared, key)
}

// NullOrAbsent reports whether the directive was left out entirely or
// declared as null. An explicit empty string is neither.
func (g *Game) NullOrAbsent(key string) bool {
	return !contains(g.declared, key) || contains(g.nulls, key)
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// PathRule is one remote-to-local sync mapping under "paths".
type PathRule struct {
	IsDir        bool     `yaml:"is_dir"`
	Exclude      []string `yaml:"exclude"`
	DeleteOthers bool     `yaml:"delete_others"`
	Root         string   `yaml:"root"`
	Overwrite    bool     `yaml:"overwrite"`
}

// Manifest is the parsed remote configuration document. AltNames and Bulletin
// are passed through to the launcher untouched.
//
// Exclude entries are directory-scoped prefixes matched against the
// root-joined local path. Whether a file-granular exclude should interact
// with delete_others differently is not settled product behavior; today it
// works by exact prefix equality only.
type Manifest struct {
	Startup  Startup                        `yaml:"startup"`
	Games    map[string]Game                `yaml:"games"`
	Paths    map[string]PathRule            `yaml:"paths"`
	AltNames map[string]string              `yaml:"altnames"`
	Bulletin map[string]map[string][]string `yaml:"bulletin"`
}

// ActiveGame returns the game type selected by startup.game and its
// directives. Only valid after Validate.
func (m *Manifest) ActiveGame() (GameType, Game) {
	return GameType(m.Startup.Game), m.Games[m.Startup.Game]
}
