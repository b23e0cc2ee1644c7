package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ProofStorage persists an uploaded proof file and returns a URL to reach it.
type ProofStorage interface {
	Save(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error)
}

// LocalStorage writes uploads below Root and serves them under URLPrefix.
// Used in development when no R2 bucket is configured.
type LocalStorage struct {
	Root      string
	URLPrefix string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{Root: root, URLPrefix: "/uploads"}, nil
}

func (l *LocalStorage) Save(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if strings.Contains(key, "..") || clean == "/" {
		return "", fmt.Errorf("invalid upload key %q", key)
	}
	destPath := filepath.Join(l.Root, filepath.FromSlash(clean))

	// ✅ Ensure the directory for the destination file exists
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return l.URLPrefix + clean, nil
}

// ProofKey builds the object key of a proof upload, keeping the original extension.
func ProofKey(questID, taskID, userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("proofs/%s/%s/%s%s", questID, taskID, userID, ext)
}
