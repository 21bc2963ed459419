package feedprep

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		compressionType CompressionType
		extension       string
	}{
		{name: "No compression", compressionType: CompressionNone, extension: ""},
		{name: "Gzip compression", compressionType: CompressionGZ, extension: ".gz"},
		{name: "XZ compression", compressionType: CompressionXZ, extension: ".xz"},
		{name: "ZSTD compression", compressionType: CompressionZSTD, extension: ".zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.extension, tt.compressionType.Extension())

			testData := []byte("FirstName,LastName\nJohn,Doe\n")
			var compressed bytes.Buffer
			writer, closeWriter, err := newCompressWriter(&compressed, tt.compressionType)
			require.NoError(t, err)
			_, err = writer.Write(testData)
			require.NoError(t, err)
			require.NoError(t, closeWriter())

			reader, closeReader, err := newDecompressReader(&compressed, tt.compressionType)
			require.NoError(t, err)
			defer func() {
				_ = closeReader()
			}()

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, testData, got)
		})
	}
}

func TestCompressionFromName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		wantBase string
		want     CompressionType
	}{
		{name: "users.csv", wantBase: "users.csv", want: CompressionNone},
		{name: "users.csv.gz", wantBase: "users.csv", want: CompressionGZ},
		{name: "users.XLSX.XZ", wantBase: "users.XLSX", want: CompressionXZ},
		{name: "users.txt.zst", wantBase: "users.txt", want: CompressionZSTD},
		{name: "archive.tgz", wantBase: "archive.tgz", want: CompressionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base, got := compressionFromName(tt.name)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCompressionType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    CompressionType
		wantErr bool
	}{
		{input: "", want: CompressionNone},
		{input: "none", want: CompressionNone},
		{input: "gz", want: CompressionGZ},
		{input: ".GZ", want: CompressionGZ},
		{input: "xz", want: CompressionXZ},
		{input: "zst", want: CompressionZSTD},
		{input: "zstd", want: CompressionZSTD},
		{input: "rar", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCompressionType(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCopyCompressed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n1,2\n"), 0o600))

	dst := filepath.Join(dir, "users.csv.zst")
	require.NoError(t, copyCompressed(src, dst, CompressionZSTD))

	reader, closeReader, err := openDecompressed(dst)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, closeReader())
	assert.Equal(t, "a,b\n1,2\n", string(got))

	t.Run("Existing destination is not overwritten", func(t *testing.T) {
		t.Parallel()
		require.Error(t, copyCompressed(src, dst, CompressionNone))
	})
}
