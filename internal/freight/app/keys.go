package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/jwtx"
)

// Keys bundles the token signing material.
type Keys struct {
	Signer   *jwtx.Signer
	KeySet   *jwtx.KeySet
	Verifier *jwtx.Verifier
}

// InitKeys loads the Ed25519 signing key, generating it on first start so
// issued tokens survive restarts. Deleting the file invalidates every token.
func InitKeys(cfg Config, logger *slog.Logger) (Keys, error) {
	key, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyPath)
	if err != nil {
		return Keys{}, fmt.Errorf("failed to load signing key: %w", err)
	}
	signer, err := jwtx.NewSigner(key)
	if err != nil {
		return Keys{}, fmt.Errorf("failed to create signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return Keys{}, fmt.Errorf("failed to publish signing key: %w", err)
	}

	logger.Info("signing key loaded",
		"algorithm", "EdDSA",
		"kid", signer.KID(),
		"issuer", cfg.Issuer,
	)
	return Keys{Signer: signer, KeySet: keys, Verifier: jwtx.NewVerifier(keys, cfg.Issuer)}, nil
}

// InitSecrets installs the password pepper and argon2id parameters and loads
// the sealer used for TOTP secrets.
func InitSecrets(cfg Config, logger *slog.Logger) (*cryptox.Sealer, error) {
	if err := cryptox.LoadPepper(cfg.PepperPath); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	params := cryptox.DefaultArgon2Params
	if cfg.Argon2MemoryKiB > 0 {
		params.MemoryKiB = uint32(cfg.Argon2MemoryKiB)
	}
	if cfg.Argon2Iterations > 0 {
		params.Iterations = uint32(cfg.Argon2Iterations)
	}
	if cfg.Argon2Parallelism > 0 {
		params.Parallelism = uint8(min(cfg.Argon2Parallelism, 255))
	}
	cryptox.SetArgon2Params(params)
	logger.Debug("argon2id parameters set",
		"memory_kib", params.MemoryKiB,
		"iterations", params.Iterations,
		"parallelism", params.Parallelism,
	)

	sealer, err := cryptox.LoadSealer(cfg.SealerKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load sealer key: %w", err)
	}
	return sealer, nil
}
