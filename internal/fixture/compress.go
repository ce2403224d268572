package fixture

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// decompressReader wraps r so reads return the decompressed stream.
// Closing the result does not close r.
func decompressReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gzipReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gzipReader, nil
	case Zstd:
		zstdReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return zstdReader.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

// compressWriter wraps w so writes are compressed. Close flushes the
// compressor but does not close w.
func compressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		return enc, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Brotli:
		return brotli.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// multiCloser closes each closer in order, collecting every error.
type multiCloser struct {
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var finalErr *multierror.Error
	for _, closer := range m.closers {
		if err := closer.Close(); err != nil {
			finalErr = multierror.Append(finalErr, err)
		}
	}
	return finalErr.ErrorOrNil()
}
