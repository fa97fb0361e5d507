// Package qr renders pairing codes as PNG files that the platform
// workers deliver as attachments.
package qr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tinyland-inc/truefriend/pkg/vault"
)

type Generator struct {
	dir   string
	vault *vault.Vault
}

// NewGenerator writes QR images under dir. When a vault is supplied,
// secure codes carry ciphertext instead of the raw payload.
func NewGenerator(dir string, v *vault.Vault) (*Generator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating qr directory: %w", err)
	}
	return &Generator{dir: dir, vault: v}, nil
}

// Generate renders text into a PNG and returns its path. With secure set
// and a vault configured, the encoded payload is encrypted first.
func (g *Generator) Generate(text string, secure bool) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty qr payload")
	}

	content := text
	prefix := "qr_"
	if secure && g.vault != nil {
		sealed, err := g.vault.Encrypt(text)
		if err != nil {
			return "", err
		}
		content = sealed
		prefix = "secure_qr_"
	}

	path := filepath.Join(g.dir, fmt.Sprintf("%s%s.png", prefix, uuid.New().String()[:8]))
	if err := qrcode.WriteFile(content, qrcode.Medium, 256, path); err != nil {
		return "", fmt.Errorf("writing qr image: %w", err)
	}

	return path, nil
}
