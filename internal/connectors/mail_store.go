package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"caremind/internal"
)

// MailStore keeps a content-addressed .eml copy of every shared message.
type MailStore struct {
	dir string
}

func NewMailStore(dir string) *MailStore {
	return &MailStore{dir: dir}
}

func (s *MailStore) Store(msg internal.OutgoingMessage) (string, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	rawPath := filepath.Join(s.dir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return "", err
		}
	}
	return rawPath, nil
}
