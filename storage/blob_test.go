package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Store_Writes_Under_Root_And_Returns_URL(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store, err := NewDiskBlobStore(root, "/media/", slog.Default())
	req.NoError(err)

	data := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	url, err := store.Store(context.Background(), "chat_media/conv-1/1700000000.jpg", data)
	req.NoError(err)
	req.Equal("/media/chat_media/conv-1/1700000000.jpg", url)

	written, err := os.ReadFile(filepath.Join(root, "chat_media", "conv-1", "1700000000.jpg"))
	req.NoError(err)
	req.Equal(data, written)
}

func Test_Store_Rejects_Escaping_Names(t *testing.T) {
	req := require.New(t)
	store, err := NewDiskBlobStore(t.TempDir(), "/media", slog.Default())
	req.NoError(err)

	for _, name := range []string{"../outside.bin", "/etc/passwd", "."} {
		_, err := store.Store(context.Background(), name, []byte("x"))
		req.Error(err, name)
	}
}
