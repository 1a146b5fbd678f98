// Package kms sources sensitive material from HashiCorp Vault.
package kms

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/courierd/courierd/internal/config"
	"github.com/courierd/courierd/pkg/logger"
)

// VaultSecretSource reads the audit signing secret from a Vault KV v2 mount.
// The secret is fetched once at startup; the audit signer never re-reads it,
// so rotating the secret requires a process restart.
type VaultSecretSource struct {
	client *vault.Client
	config config.VaultConfig
	logger logger.Logger
}

// NewVaultSecretSource builds a Vault client from the given configuration.
func NewVaultSecretSource(cfg config.VaultConfig, log logger.Logger) (*VaultSecretSource, error) {
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultSecretSource{
		client: client,
		config: cfg,
		logger: log.WithComponent("VaultSecretSource"),
	}, nil
}

// AuditSigningSecret reads the HMAC signing secret from the configured path.
func (s *VaultSecretSource) AuditSigningSecret(ctx context.Context) (string, error) {
	path := fmt.Sprintf("%s/data/%s", s.config.MountPath, s.config.AuditSecretPath)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.logger.Error(ctx, "failed to read audit signing secret from Vault", err,
			logger.String("path", path))
		return "", fmt.Errorf("could not read audit signing secret: %w", err)
	}
	if secret == nil || secret.Data["data"] == nil {
		return "", fmt.Errorf("audit signing secret not found at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid secret format at %s", path)
	}

	value, ok := data["signing_secret"].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("signing_secret missing or empty at %s", path)
	}

	return value, nil
}
