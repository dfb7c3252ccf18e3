package treestore

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/lange-studios/gobvh/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeBlob_EncodeDecodeRoundTrip_NoCompression(t *testing.T) {
	blob := NewTreeBlob([]byte("nodes-payload"), []byte("leaves-payload"), 42)

	data, err := Encode(blob, "none")
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, blob.Nodes, decoded.Nodes)
	assert.Equal(t, blob.Leaves, decoded.Leaves)
	assert.Equal(t, blob.RootRef, decoded.RootRef)
	assert.Equal(t, blob.ContentHash, decoded.ContentHash)
}

func TestTreeBlob_EncodeDecodeRoundTrip_Gzip(t *testing.T) {
	blob := NewTreeBlob(bytes.Repeat([]byte{0xAB}, 4096), bytes.Repeat([]byte{0xCD}, 1024), 7)

	data, err := Encode(blob, "gzip")
	require.NoError(t, err)
	assert.Less(t, len(data), len(blob.Nodes)+len(blob.Leaves))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, blob.Nodes, decoded.Nodes)
	assert.Equal(t, blob.ContentHash, decoded.ContentHash)
}

func TestTreeBlob_EncodeDecodeRoundTrip_Zstd(t *testing.T) {
	blob := NewTreeBlob(bytes.Repeat([]byte{0x11}, 8192), bytes.Repeat([]byte{0x22}, 2048), 99)

	data, err := Encode(blob, "zstd")
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, blob.Leaves, decoded.Leaves)
}

func TestDecode_RejectsNonBlobData(t *testing.T) {
	_, err := Decode([]byte("not a tree blob"))
	assert.Error(t, err)
}

func TestLocalStorage_UploadDownloadDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "run-1/tree.bin", bytes.NewReader([]byte("hello"))))

	ok, err := store.Exists(ctx, "run-1/tree.bin")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Download(ctx, "run-1/tree.bin")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "run-1/tree.bin"))
	ok, err = store.Exists(ctx, "run-1/tree.bin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_DownloadMissingKeyErrors(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPutGet_RoundTripsThroughStorage(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	blob := NewTreeBlob([]byte("n"), []byte("l"), 3)
	ctx := context.Background()
	require.NoError(t, Put(ctx, store, "blob.bin", blob, "zstd"))

	got, err := Get(ctx, store, "blob.bin")
	require.NoError(t, err)
	assert.Equal(t, blob.ContentHash, got.ContentHash)
}

func TestValidateConfig_LocalRequiresPath(t *testing.T) {
	err := ValidateConfig(config.StorageConfig{Type: "local"})
	assert.Error(t, err)
}

func TestValidateConfig_COSRequiresCredentials(t *testing.T) {
	err := ValidateConfig(config.StorageConfig{Type: "cos", Bucket: "b", Region: "r"})
	assert.Error(t, err)
}

func TestValidateConfig_RejectsUnknownCompression(t *testing.T) {
	err := ValidateConfig(config.StorageConfig{Type: "local", LocalPath: "/tmp/x", Compress: "lz4"})
	assert.Error(t, err)
}

func TestNew_DefaultsToLocalStorage(t *testing.T) {
	store, err := New(config.StorageConfig{LocalPath: filepath.Join(t.TempDir(), "s")})
	require.NoError(t, err)
	_, ok := store.(*LocalStorage)
	assert.True(t, ok)
}
