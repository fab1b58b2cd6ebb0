// Package keymaterial loads certificates, private keys and TLS roots from
// local files, HashiCorp Vault or S3-compatible object storage.
//
// Locations are URIs:
//
//	/etc/fabric/admin-cert.pem
//	file:///etc/fabric/admin-cert.pem
//	vault://vault.internal:8200/secret/fabric/admin?field=key
//	s3://ACCESS:SECRET@bucket/fabric/tls-root.pem?region=eu-west-1&endpoint=https://minio:9000
//	vault://vault.internal:8200/secret/fabric/admin?field=cert|/etc/fabric/admin-cert.pem
package keymaterial

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// Factory creates key material sources from location URIs.
type Factory struct {
	log *slog.Logger
}

func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// SourceFor creates the source matching the location scheme. Locations
// joined with LocationSeparator become a MultiSource.
func (f *Factory) SourceFor(uri string) (interfaces.KeyMaterialSource, error) {
	if strings.Contains(uri, LocationSeparator) {
		var sources []interfaces.KeyMaterialSource
		for _, part := range strings.Split(uri, LocationSeparator) {
			src, err := f.sourceFor(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
		return NewMultiSource(sources, f.log), nil
	}
	return f.sourceFor(uri)
}

func (f *Factory) sourceFor(uri string) (interfaces.KeyMaterialSource, error) {
	loc, err := interfaces.NewKeyMaterialLocation(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case "file":
		return f.createFileSource(loc)
	case "vault":
		return f.createVaultSource(loc)
	case "s3":
		return f.createS3Source(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// Load fetches the material at uri in one step.
func (f *Factory) Load(ctx context.Context, uri string) ([]byte, error) {
	src, err := f.SourceFor(uri)
	if err != nil {
		return nil, err
	}
	data, err := src.Fetch(ctx)
	if err != nil {
		f.log.Error("Failed to load key material",
			"err", err,
			slog.String("source", src.Name()),
			slog.String("location", src.LocationURI()))
		return nil, err
	}
	return data, nil
}

// createFileSource accepts file:///absolute/path and file://./relative/path.
func (f *Factory) createFileSource(loc interfaces.KeyMaterialLocation) (interfaces.KeyMaterialSource, error) {
	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in %s", interfaces.ErrInvalidLocationURI, loc)
	}
	return NewFileSource(path, f.log), nil
}

// createVaultSource reads a KV v2 secret.
// URI format: vault://host:port/mount/path/to/secret?field=content&tls=false
// The token is taken from VAULT_TOKEN.
func (f *Factory) createVaultSource(loc interfaces.KeyMaterialLocation) (interfaces.KeyMaterialSource, error) {
	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing vault address in %s", interfaces.ErrInvalidLocationURI, loc)
	}
	mount, secretPath, ok := strings.Cut(strings.Trim(loc.Path, "/"), "/")
	if !ok || mount == "" || secretPath == "" {
		return nil, fmt.Errorf("%w: expected vault://host/mount/path, got %s", interfaces.ErrInvalidLocationURI, loc)
	}

	scheme := "https"
	if loc.GetParam("tls") == "false" {
		scheme = "http"
	}

	return NewVaultSource(VaultSourceConfig{
		Address:   scheme + "://" + loc.Host,
		MountPath: mount,
		DataPath:  secretPath,
		Field:     loc.GetParam("field"),
	}, f.log)
}

// createS3Source reads one object.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=us-east-1&endpoint=https://minio:9000
func (f *Factory) createS3Source(loc interfaces.KeyMaterialLocation) (interfaces.KeyMaterialSource, error) {
	cfg := S3SourceConfig{
		Bucket:            loc.Host,
		Key:               strings.TrimPrefix(loc.Path, "/"),
		Region:            loc.GetParam("region"),
		Endpoint:          loc.GetParam("endpoint"),
		UseEnvCredentials: loc.GetParam("credentials") == "env",
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: expected s3://bucket/key, got %s", interfaces.ErrInvalidLocationURI, loc.Redacted())
	}

	if user := loc.User; user != nil {
		cfg.AccessKey = user.Username()
		cfg.SecretKey, _ = user.Password()
	}
	return NewS3Source(cfg, f.log)
}
