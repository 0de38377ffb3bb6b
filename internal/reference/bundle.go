package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"growthwatch/internal/types"
)

// zstdMagic is the little-endian frame magic number 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// maxBundleSize bounds the decompressed size of a bundle.
const maxBundleSize = 32 << 20

// decoderPool provides reusable zstd decoders to avoid repeated allocations.
var decoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxBundleSize))
		if err != nil {
			// This should never fail with nil input and default options.
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return d
	},
}

// Bundle is the serialized form of a reference table set.
type Bundle struct {
	Version         string        `json:"version"`
	Source          string        `json:"source"`
	Tables          []BundleTable `json:"tables"`
	WeightForLength []LengthTable `json:"weight_for_length"`

	// Approximate lists families whose rows are rounded or sparse rather
	// than the published values.
	Approximate []types.Family `json:"approximate,omitempty"`
}

// BundleTable is one age-indexed table; rows are [age, L, M, S].
type BundleTable struct {
	Family types.Family `json:"family"`
	Metric types.Metric `json:"metric"`
	Sex    types.Sex    `json:"sex"`
	Rows   [][4]float64 `json:"rows"`
}

// LengthTable is the weight-for-length table for one sex; rows are [cm, L, M, S].
type LengthTable struct {
	Sex  types.Sex    `json:"sex"`
	Rows [][4]float64 `json:"rows"`
}

// IsCompressed reports whether data starts with a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decompress inflates a zstd bundle using a pooled decoder.
func Decompress(data []byte) ([]byte, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd reset: %w", err)
	}
	out, err := io.ReadAll(io.LimitReader(dec, maxBundleSize+1))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	if len(out) > maxBundleSize {
		return nil, fmt.Errorf("decompressed bundle exceeds %d bytes", maxBundleSize)
	}
	return out, nil
}

// Compress produces a zstd frame for data at the best-compression level.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// ParseBundle decodes plain or zstd-compressed JSON into a Bundle.
// It does not validate table contents; see NewStore.
func ParseBundle(data []byte) (*Bundle, error) {
	if IsCompressed(data) {
		raw, err := Decompress(data)
		if err != nil {
			return nil, &ConfigurationError{Reason: "cannot decompress bundle", Err: err}
		}
		data = raw
	}

	var b Bundle
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, &ConfigurationError{Reason: "cannot decode bundle", Err: err}
	}
	return &b, nil
}

// Decode parses and validates a bundle, returning the resulting Store.
func Decode(data []byte) (*Store, error) {
	b, err := ParseBundle(data)
	if err != nil {
		return nil, err
	}
	return NewStore(b)
}
