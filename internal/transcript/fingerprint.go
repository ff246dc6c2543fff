package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Fingerprint hashes the full transcript content (SHA-256, hex). Any
// appended or edited message changes the fingerprint; equality is taken
// as content equality for caching purposes. Hashing the content rather
// than combining size/mtime avoids missed invalidations on in-place
// edits and on filesystems with coarse timestamps.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open transcript %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash transcript %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
