package versions

import (
	"context"
	"fmt"
	"log/slog"

	"mcsync/internal/manifest"
)

// Resolver turns the symbolic version directives of the active game into a
// concrete GameProfile. It consults the network but never touches the local
// filesystem.
type Resolver struct {
	meta *Metadata
}

func NewResolver(meta *Metadata) *Resolver {
	return &Resolver{meta: meta}
}

func (r *Resolver) Resolve(ctx context.Context, gameType manifest.GameType, game manifest.Game) (*GameProfile, error) {
	profile := &GameProfile{GameType: gameType}

	switch gameType {
	case manifest.Vanilla, manifest.NeoForge:
		mc, err := r.resolveMC(ctx, parseDirective(game.McVersion))
		if err != nil {
			return nil, err
		}
		profile.McVersion = mc

	case manifest.Fabric:
		if err := r.resolveLoaderGame(ctx, profile, game, r.meta.FabricURL); err != nil {
			return nil, err
		}

	case manifest.Quilt:
		if err := r.resolveLoaderGame(ctx, profile, game, r.meta.QuiltURL); err != nil {
			return nil, err
		}

	case manifest.Forge:
		if err := r.resolveForge(ctx, profile, game); err != nil {
			return nil, err
		}

	default:
		return nil, notFound("unknown game type %q", gameType)
	}

	slog.Info("Resolved game profile",
		"gameType", profile.GameType,
		"mcVersion", profile.McVersion,
		"loaderVersion", profile.LoaderVersion,
		"forgeVersion", profile.ForgeVersion,
	)
	return profile, nil
}

func (r *Resolver) resolveMC(ctx context.Context, d directive) (string, error) {
	switch d.tag {
	case tagDefault, tagLatest:
		return r.meta.LatestRelease(ctx)
	case tagLiteral:
		if err := r.meta.ValidateRelease(ctx, d.literal); err != nil {
			return "", err
		}
		return d.literal, nil
	default:
		return "", notFound("minecraft version tag %q", d.literal)
	}
}

func (r *Resolver) resolveLoaderGame(ctx context.Context, profile *GameProfile, game manifest.Game, loaderURL string) error {
	mc, err := r.resolveMC(ctx, parseDirective(game.McVersion))
	if err != nil {
		return err
	}
	profile.McVersion = mc

	switch d := parseDirective(game.LoaderVersion); d.tag {
	case tagDefault, tagLatest:
		loader, err := r.meta.LatestLoader(ctx, loaderURL)
		if err != nil {
			return err
		}
		profile.LoaderVersion = loader
	case tagLiteral:
		if err := r.meta.ValidateLoader(ctx, loaderURL, d.literal); err != nil {
			return err
		}
		profile.LoaderVersion = d.literal
	default:
		return notFound("loader version tag %q for %s", game.LoaderVersion, profile.GameType)
	}
	return nil
}

func (r *Resolver) resolveForge(ctx context.Context, profile *GameProfile, game manifest.Game) error {
	// A null (or absent) mc_version pins the pack to the newest release with
	// its recommended forge build; any declared forge_version is ignored in
	// that case.
	if game.NullOrAbsent("mc_version") {
		mc, err := r.meta.LatestRelease(ctx)
		if err != nil {
			return err
		}
		if game.ForgeVersion != "" {
			slog.Warn("Forge mc_version is null, ignoring declared forge_version",
				"declared", game.ForgeVersion)
		}
		build, err := r.meta.ForgePromo(ctx, mc, "recommended")
		if err != nil {
			return err
		}
		profile.McVersion = mc
		profile.ForgeVersion = build
		return nil
	}

	mc, err := r.resolveMC(ctx, parseDirective(game.McVersion))
	if err != nil {
		return err
	}
	profile.McVersion = mc

	switch d := parseDirective(game.ForgeVersion); d.tag {
	case tagDefault, tagRecommended:
		build, err := r.meta.ForgePromo(ctx, mc, "recommended")
		if err != nil {
			return err
		}
		profile.ForgeVersion = build
	case tagLatest:
		build, err := r.meta.ForgePromo(ctx, mc, "latest")
		if err != nil {
			return err
		}
		profile.ForgeVersion = build
	case tagLiteral:
		if err := r.meta.ValidateForgeBuild(ctx, mc, d.literal); err != nil {
			return err
		}
		profile.ForgeVersion = d.literal
	}
	return nil
}

// String renders the profile the way reports and logs show it.
func (p *GameProfile) String() string {
	switch p.GameType {
	case manifest.Fabric, manifest.Quilt:
		return fmt.Sprintf("%s %s (loader %s)", p.GameType, p.McVersion, p.LoaderVersion)
	case manifest.Forge:
		return fmt.Sprintf("%s %s-%s", p.GameType, p.McVersion, p.ForgeVersion)
	default:
		return fmt.Sprintf("%s %s", p.GameType, p.McVersion)
	}
}
