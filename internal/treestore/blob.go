package treestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/lange-studios/gobvh/pkg/compression"
)

// blobMagic tags the start of every encoded TreeBlob so Decode can refuse
// to parse unrelated data handed to it by mistake.
const blobMagic = "GBVH"

// TreeBlob is the serialized form of a completed BVH's node and leaf
// arrays, the unit that moves in and out of Storage.
type TreeBlob struct {
	Nodes       []byte
	Leaves      []byte
	RootRef     uint64
	ContentHash string
}

// NewTreeBlob builds a TreeBlob from raw node/leaf bytes and a root
// reference, computing its content hash.
func NewTreeBlob(nodes, leaves []byte, rootRef uint64) TreeBlob {
	b := TreeBlob{Nodes: nodes, Leaves: leaves, RootRef: rootRef}
	b.ContentHash = b.computeHash()
	return b
}

func (b TreeBlob) computeHash() string {
	h := sha256.New()
	h.Write(b.Nodes)
	h.Write(b.Leaves)
	_ = binary.Write(h, binary.LittleEndian, b.RootRef)
	return hex.EncodeToString(h.Sum(nil))
}

// Encode serializes b, compressing the payload with the named algorithm
// ("none", "gzip", "zstd"; empty means "none").
func Encode(b TreeBlob, compress string) ([]byte, error) {
	c, err := compressorFor(compress)
	if err != nil {
		return nil, err
	}
	defer compression.Close(c)

	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, uint64(len(b.Nodes))); err != nil {
		return nil, err
	}
	payload.Write(b.Nodes)
	if err := binary.Write(&payload, binary.LittleEndian, uint64(len(b.Leaves))); err != nil {
		return nil, err
	}
	payload.Write(b.Leaves)
	if err := binary.Write(&payload, binary.LittleEndian, b.RootRef); err != nil {
		return nil, err
	}

	compressed, err := c.Compress(payload.Bytes())
	if err != nil {
		return nil, fmt.Errorf("treestore: compress blob: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(blobMagic)
	out.WriteByte(byte(c.Type()))
	out.Write(compressed)
	return out.Bytes(), nil
}

// Decode reverses Encode and recomputes ContentHash from the decoded
// payload. The encoded form carries no stored hash, so Decode does not
// check the payload against one.
func Decode(data []byte) (TreeBlob, error) {
	if len(data) < len(blobMagic)+1 || string(data[:len(blobMagic)]) != blobMagic {
		return TreeBlob{}, fmt.Errorf("treestore: not a tree blob")
	}
	typ := compression.Type(data[len(blobMagic)])
	body := data[len(blobMagic)+1:]

	c, err := compression.New(typ, compression.LevelDefault)
	if err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: unsupported blob compression: %w", err)
	}
	defer compression.Close(c)

	raw, err := c.Decompress(body)
	if err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: decompress blob: %w", err)
	}

	r := bytes.NewReader(raw)
	var nodeLen uint64
	if err := binary.Read(r, binary.LittleEndian, &nodeLen); err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: read node length: %w", err)
	}
	nodes := make([]byte, nodeLen)
	if _, err := io.ReadFull(r, nodes); err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: read nodes: %w", err)
	}

	var leafLen uint64
	if err := binary.Read(r, binary.LittleEndian, &leafLen); err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: read leaf length: %w", err)
	}
	leaves := make([]byte, leafLen)
	if _, err := io.ReadFull(r, leaves); err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: read leaves: %w", err)
	}

	var rootRef uint64
	if err := binary.Read(r, binary.LittleEndian, &rootRef); err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: read root ref: %w", err)
	}

	blob := TreeBlob{Nodes: nodes, Leaves: leaves, RootRef: rootRef}
	blob.ContentHash = blob.computeHash()
	return blob, nil
}

func compressorFor(name string) (compression.Compressor, error) {
	switch name {
	case "", "none":
		return compression.NewNoOpCompressor(), nil
	case "gzip":
		return compression.NewGzipCompressor(compression.LevelDefault), nil
	case "zstd":
		return compression.New(compression.TypeZstd, compression.LevelDefault)
	default:
		return nil, fmt.Errorf("treestore: unsupported compression: %s", name)
	}
}

// Put encodes b and uploads it to store under key.
func Put(ctx context.Context, store Storage, key string, b TreeBlob, compress string) error {
	data, err := Encode(b, compress)
	if err != nil {
		return err
	}
	return store.Upload(ctx, key, bytes.NewReader(data))
}

// Get downloads the blob at key from store and decodes it.
func Get(ctx context.Context, store Storage, key string) (TreeBlob, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return TreeBlob{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return TreeBlob{}, fmt.Errorf("treestore: read blob: %w", err)
	}
	return Decode(data)
}
