package pipeline

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/maphist/analysis"
	"github.com/viant/maphist/resolver/vanilla"
	"gopkg.in/yaml.v3"
)

// defaultManifestURL is the public version manifest location.
const defaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// Config drives one pipeline run. Loaded from yaml; absent keys keep the
// defaults.
type Config struct {
	// WorkspaceRoot is the cache directory shared across runs.
	WorkspaceRoot string `yaml:"workspaceRoot"`
	// ManifestURL overrides the upstream version manifest location.
	ManifestURL string `yaml:"manifestURL"`

	Versions VersionsConfig `yaml:"versions"`

	// TrustedNamespaces order decides ancestry matching priority.
	TrustedNamespaces []string `yaml:"trustedNamespaces"`
	// IndexNamespace, when set, short-circuits ancestry matching onto prior
	// node indices carried under that namespace.
	IndexNamespace string `yaml:"indexNamespace"`
	// PartialDescriptors matches method ancestry on parameter types only.
	PartialDescriptors bool `yaml:"partialDescriptors"`

	// RelaxedCache accepts cached artifacts on existence alone.
	RelaxedCache bool `yaml:"relaxedCache"`
	// Concurrency bounds the number of versions resolved in parallel.
	Concurrency int `yaml:"concurrency"`

	Analyzer  analysis.Config `yaml:"analyzer"`
	Resolvers ResolverConfig  `yaml:"resolvers"`
}

// VersionsConfig selects the versions of one run: either an inclusive range
// or an explicit id list.
type VersionsConfig struct {
	Oldest   string   `yaml:"oldest"`
	Newest   string   `yaml:"newest"`
	Explicit []string `yaml:"explicit"`
}

// ResolverConfig toggles the mapping sources.
type ResolverConfig struct {
	Vanilla      bool `yaml:"vanilla"`
	Mojang       bool `yaml:"mojang"`
	Intermediary bool `yaml:"intermediary"`
	Searge       bool `yaml:"searge"`
	Spigot       bool `yaml:"spigot"`
}

// DefaultConfig returns the configuration a run starts from before yaml keys
// are applied.
func DefaultConfig() Config {
	return Config{
		WorkspaceRoot: "workspace",
		ManifestURL:   defaultManifestURL,
		TrustedNamespaces: []string{
			"mojang", "intermediary", "searge", "spigot",
		},
		Concurrency: 4,
		Analyzer: analysis.Config{
			IgnoredNamespaces: []string{
				vanilla.NamespaceModifiers,
				vanilla.NamespaceSignature,
				vanilla.NamespaceSuper,
				vanilla.NamespaceInterfaces,
			},
		},
		Resolvers: ResolverConfig{
			Vanilla:      true,
			Mojang:       true,
			Intermediary: true,
			Searge:       true,
			Spigot:       true,
		},
	}
}

// LoadConfig reads a yaml configuration file over the defaults.
func LoadConfig(ctx context.Context, fs afs.Service, location string) (Config, error) {
	config := DefaultConfig()
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return config, fmt.Errorf("failed to read config %v: %w", location, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %v: %w", location, err)
	}
	return config, config.Validate()
}

// Validate rejects configurations that cannot select a version set.
func (c *Config) Validate() error {
	if len(c.Versions.Explicit) == 0 && (c.Versions.Oldest == "" || c.Versions.Newest == "") {
		return fmt.Errorf("config selects no versions: set versions.explicit or versions.oldest and versions.newest")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if len(c.TrustedNamespaces) == 0 {
		return fmt.Errorf("at least one trusted namespace is required")
	}
	return nil
}
