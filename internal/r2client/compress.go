package r2client

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix marks zstd-compressed catalog objects and files.
const CompressedSuffix = ".zst"

// ContentTypeZstd is the content type used for compressed uploads.
const ContentTypeZstd = "application/zstd"

// IsCompressed reports whether name refers to a zstd-compressed object.
func IsCompressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), CompressedSuffix)
}

// Compress writes a zstd-compressed copy of src to dst.
func Compress(dst io.Writer, src io.Reader) (int64, error) {
	encoder, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, fmt.Errorf("compress: create encoder: %w", err)
	}

	n, err := io.Copy(encoder, src)
	if err != nil {
		_ = encoder.Close()
		return n, fmt.Errorf("compress: copy: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return n, fmt.Errorf("compress: close encoder: %w", err)
	}
	return n, nil
}

// decompressReader closes both the decoder and the underlying stream.
type decompressReader struct {
	*zstd.Decoder
	src io.Closer
}

func (r *decompressReader) Close() error {
	r.Decoder.Close()
	if r.src != nil {
		return r.src.Close()
	}
	return nil
}

// NewDecompressReader streams the decompressed contents of r.
// Closing the result also closes r when it is an io.Closer.
func NewDecompressReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: create decoder: %w", err)
	}
	src, _ := r.(io.Closer)
	return &decompressReader{Decoder: decoder, src: src}, nil
}
