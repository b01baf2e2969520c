package versions

import (
	"errors"
	"fmt"

	"mcsync/internal/manifest"
)

// GameProfile is the concrete version set resolved for the active game type.
// A profile is built fresh on every resolution pass and replaced atomically;
// consumers never observe a partially-resolved one.
type GameProfile struct {
	GameType      manifest.GameType `json:"game_type"`
	McVersion     string            `json:"mc_version"`
	LoaderVersion string            `json:"loader_version,omitempty"`
	ForgeVersion  string            `json:"forge_version,omitempty"`
}

type ErrorKind int

const (
	// VersionNotFound means the requested version does not exist in the
	// external metadata. Retrying cannot help.
	VersionNotFound ErrorKind = iota
	// MetadataUnavailable means a metadata endpoint could not be consulted.
	// The caller may retry with backoff.
	MetadataUnavailable
)

type ResolutionError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case VersionNotFound:
		return fmt.Sprintf("version not found: %s", e.Detail)
	default:
		if e.Err != nil {
			return fmt.Sprintf("version metadata unavailable: %s: %v", e.Detail, e.Err)
		}
		return fmt.Sprintf("version metadata unavailable: %s", e.Detail)
	}
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Retryable reports whether err is a transient resolution failure.
func Retryable(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == MetadataUnavailable
}

func notFound(format string, args ...any) *ResolutionError {
	return &ResolutionError{Kind: VersionNotFound, Detail: fmt.Sprintf(format, args...)}
}

func unavailable(detail string, err error) *ResolutionError {
	return &ResolutionError{Kind: MetadataUnavailable, Detail: detail, Err: err}
}

// directive is the closed set of symbolic version tags. "~" is the manifest
// shorthand for "whatever is current", same as leaving the field empty.
type directive struct {
	tag     tag
	literal string
}

type tag int

const (
	tagDefault tag = iota
	tagLatest
	tagRecommended
	tagLiteral
)

func parseDirective(s string) directive {
	switch s {
	case "", "~":
		return directive{tag: tagDefault, literal: s}
	case "latest":
		return directive{tag: tagLatest, literal: s}
	case "recommended":
		return directive{tag: tagRecommended, literal: s}
	default:
		return directive{tag: tagLiteral, literal: s}
	}
}
