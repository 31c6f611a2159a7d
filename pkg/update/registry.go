package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

type Config struct {
	RegistryURL    string `env:"REGISTRY_URL"    envDefault:""       toml:"registry_url"    yaml:"registry_url"`
	Repository     string `env:"REPOSITORY"      envDefault:"cortex" toml:"repository"      yaml:"repository"`
	Tag            string `env:"TAG"             envDefault:"latest" toml:"tag"             yaml:"tag"`
	CurrentDigest  string `env:"CURRENT_DIGEST"  envDefault:""       toml:"current_digest"  yaml:"current_digest"`
	PlainHTTP      bool   `env:"PLAIN_HTTP"      envDefault:"false"  toml:"plain_http"      yaml:"plain_http"`
	Authenticate   bool   `env:"AUTHENTICATE"    envDefault:"false"  toml:"authenticate"    yaml:"authenticate"`
	Token          string `env:"PAT"             envDefault:""       toml:"-"               yaml:"-"`
	Username       string `env:"USERNAME"        envDefault:""       toml:"username"        yaml:"username"`
	Password       string `env:"PASSWORD"        envDefault:""       toml:"-"               yaml:"-"`
	CurrentVersion string `env:"CURRENT_VERSION" envDefault:""       toml:"current_version" yaml:"current_version"`
}

func (c Config) Validate() error {
	if c.RegistryURL == "" {
		return errors.New("registry_url is required")
	}
	if c.Repository == "" {
		return errors.New("repository is required")
	}

	if c.Authenticate {
		hasToken := c.Token != ""
		hasCredentials := c.Username != "" && c.Password != ""

		if !hasToken && !hasCredentials {
			return errors.New("either PAT or username/password must be provided when authentication is enabled")
		}
	}

	return nil
}

// Registry compares the manifest published under a tag with the running
// build. The digest decides when the running one is known, otherwise the
// version annotation of the manifest does.
type Registry struct {
	config Config
	repo   *remote.Repository
}

func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tag == "" {
		cfg.Tag = "latest"
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", cfg.RegistryURL, cfg.Repository))
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for %s: %w", cfg.Repository, err)
	}
	repo.PlainHTTP = cfg.PlainHTTP

	if cfg.Authenticate {
		cred := auth.Credential{Username: cfg.Username, Password: cfg.Password}
		if cfg.Password == "" {
			cred = auth.Credential{Username: cfg.Username, AccessToken: cfg.Token}
		}
		repo.Client = &auth.Client{
			Client:     retry.DefaultClient,
			Cache:      auth.NewCache(),
			Credential: auth.StaticCredential(repo.Reference.Registry, cred),
		}
	}

	return &Registry{config: cfg, repo: repo}, nil
}

func (r *Registry) CheckForUpdates(ctx context.Context) (Info, error) {
	desc, rc, err := r.repo.FetchReference(ctx, r.config.Tag)
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve %s:%s: %w", r.config.Repository, r.config.Tag, err)
	}
	defer rc.Close()

	data, err := content.ReadAll(rc, desc)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read manifest for %s: %w", r.config.Repository, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Info{}, fmt.Errorf("failed to parse manifest for %s: %w", r.config.Repository, err)
	}

	info := Info{
		Current:   r.config.CurrentVersion,
		Latest:    manifest.Annotations[ocispec.AnnotationVersion],
		Digest:    desc.Digest.String(),
		CheckedAt: time.Now().UTC(),
	}
	switch {
	case r.config.CurrentDigest != "":
		info.Available = info.Digest != r.config.CurrentDigest
	default:
		info.Available = info.Latest != "" && info.Latest != r.config.CurrentVersion
	}

	return info, nil
}
