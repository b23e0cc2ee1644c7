package utils

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("proof", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["proof"][0]
}

func TestLocalStorageSave(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	key := ProofKey("quest-1", "task-a", "0xABC", "Shot.PNG")
	assert.Equal(t, "proofs/quest-1/task-a/0xABC.png", key)

	url, err := store.Save(context.Background(), fileHeader(t, "Shot.PNG", []byte("img")), key)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/proofs/quest-1/task-a/0xABC.png", url)

	data, err := os.ReadFile(filepath.Join(root, "proofs", "quest-1", "task-a", "0xABC.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), fileHeader(t, "x.png", []byte("x")), "../../etc/passwd")
	assert.Error(t, err)
}
