package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDataRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat("Concentraciones de clorofila en el lago de Chapala. ", 40))

	for _, algorithm := range []CompressionAlgorithm{
		CompressionNone, CompressionGzip, CompressionZlib, CompressionBrotli,
	} {
		compressed, err := CompressData(original, algorithm)
		require.NoError(t, err, string(algorithm))

		restored, err := DecompressData(compressed, algorithm)
		require.NoError(t, err, string(algorithm))
		assert.Equal(t, original, restored, string(algorithm))

		if algorithm != CompressionNone {
			assert.Less(t, len(compressed), len(original), string(algorithm))
		}
	}
}

func TestCompressDataUnknownAlgorithm(t *testing.T) {
	_, err := CompressData([]byte("payload"), CompressionAlgorithm("zstd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported compression algorithm")

	_, err = DecompressData([]byte("payload"), CompressionAlgorithm("zstd"))
	require.Error(t, err)
}

func TestCompressDataEmptyInput(t *testing.T) {
	out, err := CompressData(nil, CompressionBrotli)
	require.NoError(t, err)
	assert.Empty(t, out)

	restored, err := DecompressData(nil, CompressionBrotli)
	require.NoError(t, err)
	assert.Empty(t, restored)
}

func TestGetBestCompressionBySize(t *testing.T) {
	assert.Equal(t, CompressionNone, GetBestCompression([]byte("short")))
	assert.Equal(t, CompressionNone, GetBestCompression(make([]byte, 499)))
	assert.Equal(t, CompressionBrotli, GetBestCompression(make([]byte, 500)))
}

func TestCompressTextPicksAlgorithmBySize(t *testing.T) {
	small := "tiny note"
	compressed, algorithm, err := CompressText(small)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algorithm)
	assert.Equal(t, small, string(compressed))

	large := strings.Repeat("Calidad del agua en la cuenca Lerma-Chapala. ", 30)
	compressed, algorithm, err = CompressText(large)
	require.NoError(t, err)
	assert.Equal(t, CompressionBrotli, algorithm)

	restored, err := DecompressText(compressed, algorithm)
	require.NoError(t, err)
	assert.Equal(t, large, restored)
}
