package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// Keys of the persisted save domains.
const (
	KeyProgress  = "mining_order_board_v2"
	KeyHostOres  = "mob_host_ores"
	KeyWebhook   = "mob_webhook_url"
	maxBlobBytes = 64 << 20
)

var (
	ErrNotFound = errors.New("store: key not found")
	ErrCorrupt  = errors.New("store: blob failed verification")
)

// Store is a small key-value store for save blobs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Seal compresses value and returns the blob with its hex checksum.
func Seal(value []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(value); err != nil {
		return nil, "", fmt.Errorf("compress blob: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("compress blob: %w", err)
	}
	blob := buf.Bytes()
	return blob, checksum(blob), nil
}

// Open verifies and decompresses a sealed blob.
func Open(blob []byte, sum string) ([]byte, error) {
	if checksum(blob) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	zr := lz4.NewReader(bytes.NewReader(blob))
	out, err := io.ReadAll(io.LimitReader(zr, maxBlobBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
