package speech

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// AssetStore writes synthesized audio under a local directory and hands
// back the reference path a client can fetch later. Lifecycle of the
// files (cleanup, CDN upload) belongs to the deployment, not the core.
type AssetStore struct {
	dir    string
	prefix string
}

// NewAssetStore ensures dir exists and returns a store whose references
// are prefix + filename.
func NewAssetStore(dir, prefix string) (*AssetStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create voice dir: %w", err)
	}
	return &AssetStore{dir: dir, prefix: prefix}, nil
}

// Save writes the audio payload and returns its reference. The name is
// content-addressed, so re-synthesizing identical text reuses the file.
func (s *AssetStore) Save(audio []byte) (string, error) {
	sum := sha1.Sum(audio)
	name := "voice_" + hex.EncodeToString(sum[:]) + ".mp3"

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return s.prefix + name, nil
}
