package storage

import (
	"path"
	"path/filepath"
	"strings"
)

// ObjectKey builds the bucket key of an asset. The file name is sanitized.
func ObjectKey(workspaceID, assetID, fileName string) string {
	return path.Join("workspaces", workspaceID, "assets", assetID, SanitizeFilename(fileName))
}

// SanitizeFilename strips directories and NUL bytes from a client supplied name.
// Empty and special names become "unnamed".
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}
	return filename
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}
