package object

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	uploadsPrefix  = "uploads"
	progressPrefix = "progress"
	extractedExt   = ".extracted.txt"
	sniffLen       = 512
)

// ErrInvalidFileName is returned for empty names and names that try to
// escape their directory.
var ErrInvalidFileName = errors.New("invalid file name")

// UploadKey returns uploads/<session hash>/<uuid>_<name> for a new upload.
func UploadKey(sessionID, fileName string) (string, error) {
	name, err := cleanFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(uploadsPrefix, hashKey(sessionID), uuid.NewString()+"_"+name), nil
}

// ExtractedKey is where the text derived from an upload is kept.
func ExtractedKey(uploadKey string) string {
	return uploadKey + extractedExt
}

// ProgressKey maps a progress record key to its object key.
func ProgressKey(key string) string {
	return path.Join(progressPrefix, hashKey(key)+".json")
}

// CleanKey rejects empty, absolute and parent-relative keys.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return clean, nil
}

// Sniff detects the MIME type from the head of r. The returned reader
// yields the full content, head included.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [sniffLen]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func cleanFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}
