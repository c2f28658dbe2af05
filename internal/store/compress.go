package store

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// On-disk frame for compressed values: 8-byte magic + 4-byte LE uint32
// uncompressed size + lz4 block data. Values that do not shrink are stored
// raw without the magic.
var frameMagic = []byte("truhLz4\x00")

const frameHeaderSize = 12

func compress(value []byte) []byte {
	dst := make([]byte, frameHeaderSize+lz4.CompressBlockBound(len(value)))
	copy(dst, frameMagic)
	binary.LittleEndian.PutUint32(dst[8:12], uint32(len(value)))

	n, err := lz4.CompressBlock(value, dst[frameHeaderSize:], nil)
	if err != nil || n == 0 || frameHeaderSize+n >= len(value) {
		// Incompressible or too small to be worth framing.
		return value
	}
	return dst[:frameHeaderSize+n]
}

func decompress(raw []byte) ([]byte, error) {
	if len(raw) < frameHeaderSize || string(raw[:8]) != string(frameMagic) {
		return raw, nil
	}
	size := binary.LittleEndian.Uint32(raw[8:12])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(raw[frameHeaderSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return dst[:n], nil
}
