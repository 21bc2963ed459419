package feedprep

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression applied to archived files
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// Compression extensions
const (
	// extGZ is the gzip compression extension
	extGZ = ".gz"
	// extXZ is the xz compression extension
	extXZ = ".xz"
	// extZSTD is the zstd compression extension
	extZSTD = ".zst"
)

// ParseCompressionType maps the archiveCompression setting to a CompressionType.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "none":
		return CompressionNone, nil
	case "gz", "gzip":
		return CompressionGZ, nil
	case "xz":
		return CompressionXZ, nil
	case "zst", "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: compression %q", ErrUnsupportedFormat, s)
	}
}

// String returns the string representation of CompressionType
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return extGZ
	case CompressionXZ:
		return extXZ
	case CompressionZSTD:
		return extZSTD
	default:
		return ""
	}
}

// compressionFromName reports the compression implied by the file name
// suffix and returns the name without it.
func compressionFromName(name string) (string, CompressionType) {
	lower := strings.ToLower(name)
	for _, c := range []CompressionType{CompressionGZ, CompressionXZ, CompressionZSTD} {
		if strings.HasSuffix(lower, c.Extension()) {
			return name[:len(name)-len(c.Extension())], c
		}
	}
	return name, CompressionNone
}

// newDecompressReader wraps reader with the decompressor for compressionType.
// The returned close func releases the decompressor, not reader.
func newDecompressReader(reader io.Reader, compressionType CompressionType) (io.Reader, func() error, error) {
	switch compressionType {
	case CompressionNone:
		return reader, func() error { return nil }, nil
	case CompressionGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil
	case CompressionXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzReader, func() error { return nil }, nil
	case CompressionZSTD:
		decoder, err := zstd.NewReader(reader, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error {
			decoder.Close()
			return nil
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: compression %v", ErrUnsupportedFormat, compressionType)
	}
}

// newCompressWriter wraps writer with the compressor for compressionType.
// The returned close func flushes the compressor, not writer.
func newCompressWriter(writer io.Writer, compressionType CompressionType) (io.Writer, func() error, error) {
	switch compressionType {
	case CompressionNone:
		return writer, func() error { return nil }, nil
	case CompressionGZ:
		gzWriter := gzip.NewWriter(writer)
		return gzWriter, gzWriter.Close, nil
	case CompressionXZ:
		xzWriter, err := xz.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzWriter, xzWriter.Close, nil
	case CompressionZSTD:
		zstdWriter, err := zstd.NewWriter(writer, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, zstdWriter.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: compression %v", ErrUnsupportedFormat, compressionType)
	}
}

// openDecompressed opens path and decompresses it according to its name.
// The close func releases both the decompressor and the file.
func openDecompressed(path string) (io.Reader, func() error, error) {
	_, compressionType := compressionFromName(filepath.Base(path))
	f, err := os.Open(path) //nolint:gosec // Input path comes from SelectInputFile or the archive
	if err != nil {
		return nil, nil, err
	}
	reader, closeReader, err := newDecompressReader(f, compressionType)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return reader, func() error {
		readerErr := closeReader()
		if err := f.Close(); err != nil && readerErr == nil {
			return err
		}
		return readerErr
	}, nil
}

// createCompressedFile creates path and returns a writer applying the
// compression. The returned cleanup flushes the compressor, syncs and
// closes the file.
func createCompressedFile(path string, compressionType CompressionType) (io.Writer, func() error, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // Archive paths are derived from configured folders
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file: %w", err)
	}

	writer, cleanup, err := newCompressWriter(file, compressionType)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	compositeCleanup := func() error {
		var cleanupErr error
		if cleanup != nil {
			cleanupErr = cleanup()
		}
		if syncErr := file.Sync(); syncErr != nil && cleanupErr == nil {
			cleanupErr = syncErr
		}
		if closeErr := file.Close(); closeErr != nil && cleanupErr == nil {
			cleanupErr = closeErr
		}
		return cleanupErr
	}

	return writer, compositeCleanup, nil
}

// copyCompressed copies src to dst through the compression writer.
func copyCompressed(src, dst string, compressionType CompressionType) error {
	in, err := os.Open(src) //nolint:gosec // Source is the selected input or a snapshot we wrote
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close() // Read-only handle
	}()

	writer, cleanup, err := createCompressedFile(dst, compressionType)
	if err != nil {
		return err
	}
	if _, err = io.Copy(writer, in); err != nil {
		_ = cleanup()
		_ = os.Remove(dst)
		return err
	}
	if err = cleanup(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
