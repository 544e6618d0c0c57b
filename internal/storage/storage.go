// Package storage writes finished digests into the Obsidian vault
// directory tree.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
)

// VaultPublisher saves digest documents under <vaultPath>/<folder>/.
type VaultPublisher struct {
	vaultPath string
	folder    string
}

func NewVaultPublisher(vaultPath, folder string) *VaultPublisher {
	return &VaultPublisher{vaultPath: vaultPath, folder: folder}
}

// Publish writes the digest to its vault location, creating the folder
// when missing, and returns the written file path.
func (p *VaultPublisher) Publish(filename, content string) (string, error) {
	dir := filepath.Join(p.vaultPath, p.folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create digest folder: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write digest: %w", err)
	}

	logger.Info("Digest published", "path", path, "bytes", len(content))
	metrics.Global.IncrementDigestsPublished()
	return path, nil
}
