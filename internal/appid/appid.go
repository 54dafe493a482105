package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/plainly/plainly/internal/assets/appidentity"
)

// Built-in identity values used when no identity file can be loaded.
const (
	FallbackBinaryName = "plainly"
	FallbackVendor     = "plainly"
	FallbackEnvPrefix  = "PLAINLY_"
	FallbackConfigName = "plainly"
)

func init() {
	// An explicit FULMEN_APP_IDENTITY_PATH still wins over the embedded copy.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get loads the app identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Fallback returns the built-in identity.
func Fallback() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName: FallbackBinaryName,
		Vendor:     FallbackVendor,
		EnvPrefix:  FallbackEnvPrefix,
		ConfigName: FallbackConfigName,
	}
}

// GetOrFallback loads the app identity, returning the built-in identity and the
// load error when loading fails.
func GetOrFallback(ctx context.Context) (*appidentity.Identity, error) {
	identity, err := Get(ctx)
	if err != nil || identity == nil {
		return Fallback(), err
	}
	return identity, nil
}

// EnvPrefix returns the identity's env var prefix, always ending in "_".
func EnvPrefix(ctx context.Context) string {
	identity, _ := GetOrFallback(ctx)
	prefix := strings.TrimSpace(identity.EnvPrefix)
	if prefix == "" {
		return FallbackEnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}
