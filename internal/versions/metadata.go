package versions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	mojangManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	fabricLoaderURL   = "https://meta.fabricmc.net/v2/versions/loader"
	quiltLoaderURL    = "https://meta.quiltmc.org/v3/versions/loader"
	forgePromosURL    = "https://files.minecraftforge.net/net/minecraftforge/forge/promotions_slim.json"
	forgeMavenURL     = "https://files.minecraftforge.net/net/minecraftforge/forge/maven-metadata.json"
)

// Metadata consults the public version-metadata endpoints. URLs are fields
// so tests can point the client at local servers.
type Metadata struct {
	Client *http.Client

	MojangURL      string
	FabricURL      string
	QuiltURL       string
	ForgePromosURL string
	ForgeMavenURL  string
}

func NewMetadata() *Metadata {
	return &Metadata{
		Client:         &http.Client{Timeout: 15 * time.Second},
		MojangURL:      mojangManifestURL,
		FabricURL:      fabricLoaderURL,
		QuiltURL:       quiltLoaderURL,
		ForgePromosURL: forgePromosURL,
		ForgeMavenURL:  forgeMavenURL,
	}
}

// getJSON decodes one endpoint response. Any failure here is transient from
// the resolver's point of view: the endpoint exists, we just could not ask it.
func (m *Metadata) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return unavailable(url, err)
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return unavailable(url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unavailable(url, fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable(url, err)
	}
	return nil
}

type mojangManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"versions"`
}

func (m *Metadata) mojang(ctx context.Context) (*mojangManifest, error) {
	var mm mojangManifest
	if err := m.getJSON(ctx, m.MojangURL, &mm); err != nil {
		return nil, err
	}
	return &mm, nil
}

// LatestRelease returns the newest stable Minecraft release.
func (m *Metadata) LatestRelease(ctx context.Context) (string, error) {
	mm, err := m.mojang(ctx)
	if err != nil {
		return "", err
	}
	if mm.Latest.Release == "" {
		return "", unavailable(m.MojangURL, fmt.Errorf("no latest release in manifest"))
	}
	return mm.Latest.Release, nil
}

// ValidateRelease checks that a literal Minecraft version exists.
func (m *Metadata) ValidateRelease(ctx context.Context, version string) error {
	mm, err := m.mojang(ctx)
	if err != nil {
		return err
	}
	for _, v := range mm.Versions {
		if v.ID == version {
			return nil
		}
	}
	return notFound("minecraft version %q", version)
}

type loaderBuild struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

func (m *Metadata) loaders(ctx context.Context, url string) ([]loaderBuild, error) {
	var builds []loaderBuild
	if err := m.getJSON(ctx, url, &builds); err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, unavailable(url, fmt.Errorf("empty loader list"))
	}
	return builds, nil
}

// LatestLoader returns the newest loader build for fabric or quilt. Fabric
// marks stable builds; quilt's list is newest-first without the flag.
func (m *Metadata) LatestLoader(ctx context.Context, url string) (string, error) {
	builds, err := m.loaders(ctx, url)
	if err != nil {
		return "", err
	}
	for _, b := range builds {
		if b.Stable {
			return b.Version, nil
		}
	}
	return builds[0].Version, nil
}

func (m *Metadata) ValidateLoader(ctx context.Context, url, version string) error {
	builds, err := m.loaders(ctx, url)
	if err != nil {
		return err
	}
	for _, b := range builds {
		if b.Version == version {
			return nil
		}
	}
	return notFound("loader version %q", version)
}

// ForgePromo returns the promoted build ("recommended" or "latest") for an
// MC version, e.g. promos["1.20.1-recommended"] = "47.2.0".
func (m *Metadata) ForgePromo(ctx context.Context, mcVersion, channel string) (string, error) {
	var payload struct {
		Promos map[string]string `json:"promos"`
	}
	if err := m.getJSON(ctx, m.ForgePromosURL, &payload); err != nil {
		return "", err
	}
	build, ok := payload.Promos[mcVersion+"-"+channel]
	if !ok {
		return "", notFound("forge %s build for minecraft %q", channel, mcVersion)
	}
	return build, nil
}

// ValidateForgeBuild checks a literal forge build against the maven index,
// which maps MC versions to "<mc>-<build>" coordinates.
func (m *Metadata) ValidateForgeBuild(ctx context.Context, mcVersion, build string) error {
	var index map[string][]string
	if err := m.getJSON(ctx, m.ForgeMavenURL, &index); err != nil {
		return err
	}
	want := mcVersion + "-" + build
	for _, coord := range index[mcVersion] {
		if coord == want {
			return nil
		}
	}
	return notFound("forge build %q for minecraft %q", build, mcVersion)
}
