package embedding

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the codec wrapped around a snapshot stream.
type Compression uint8

const (
	// CompressionNone stores the snapshot uncompressed.
	CompressionNone Compression = iota

	// CompressionS2 uses S2 (Snappy-compatible), the default: fast with
	// reasonable ratios on float payloads.
	CompressionS2

	// CompressionZstd trades encode speed for a better ratio.
	CompressionZstd

	// CompressionLZ4 favors decode speed.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionS2:
		return "s2"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// nopWriteCloser adapts the uncompressed path to the codec interface.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compressionWriter(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionS2:
		return s2.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
}

func compressionReader(c Compression, r io.Reader) (io.Reader, error) {
	switch c {
	case CompressionNone:
		return r, nil
	case CompressionS2:
		return s2.NewReader(r), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}

		return zr.IOReadCloser(), nil
	case CompressionLZ4:
		return lz4.NewReader(r), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
}
