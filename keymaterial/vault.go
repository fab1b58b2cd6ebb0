package keymaterial

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// DefaultVaultField is the KV v2 data key read when none is given.
const DefaultVaultField = "content"

type VaultSourceConfig struct {
	Address   string
	MountPath string
	DataPath  string
	Field     string
	// Token overrides VAULT_TOKEN when set.
	Token   string
	Timeout time.Duration
}

// VaultSource reads one field of a KV v2 secret.
type VaultSource struct {
	client      *api.Client
	path        string
	field       string
	log         *slog.Logger
	locationURI string
}

func NewVaultSource(cfg VaultSourceConfig, log *slog.Logger) (*VaultSource, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	config := api.DefaultConfig()
	config.Address = cfg.Address
	config.HttpClient = &http.Client{Timeout: timeout}
	config.MaxRetries = 0

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	field := cfg.Field
	if field == "" {
		field = DefaultVaultField
	}

	mountPath := strings.Trim(cfg.MountPath, "/")
	dataPath := strings.Trim(cfg.DataPath, "/")

	return &VaultSource{
		client:      client,
		path:        fmt.Sprintf("%s/data/%s", mountPath, dataPath),
		field:       field,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s?field=%s", strings.TrimPrefix(strings.TrimPrefix(cfg.Address, "https://"), "http://"), mountPath, dataPath, field),
	}, nil
}

func (s *VaultSource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	secret, err := s.client.Logical().ReadWithContext(ctx, s.path)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("path", s.path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSourceUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyMaterialNotFound, s.path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a KV v2 secret", interfaces.ErrKeyMaterialNotFound, s.path)
	}
	content, ok := data[s.field].(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing in %s", interfaces.ErrKeyMaterialNotFound, s.field, s.path)
	}

	s.log.Debug("Read key material from Vault",
		slog.String("path", s.path),
		slog.String("field", s.field),
		slog.Duration("duration", time.Since(start)))
	return []byte(content), nil
}

func (s *VaultSource) Name() string {
	return "vault"
}

func (s *VaultSource) LocationURI() string {
	return s.locationURI
}
