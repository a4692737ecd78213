package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adam-bouafia/logsim/format"
)

func testPayload() []byte {
	// Repetitive columnar-looking data so every codec actually shrinks it.
	var buf bytes.Buffer
	for i := 0; i < 200; i++ {
		buf.WriteString("[notice] LDAP: operation completed in 12ms\n")
	}

	return buf.Bytes()
}

func TestCodecs_RoundTrip(t *testing.T) {
	payload := testPayload()

	types := []format.CompressionType{
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
		format.CompressionNone,
	}

	for _, ct := range types {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := CreateCodec(ct, 0)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)

			if ct != format.CompressionNone {
				require.Less(t, len(compressed), len(payload), "repetitive payload must shrink")
			}
		})
	}
}

func TestCreateCodec_Invalid(t *testing.T) {
	_, err := CreateCodec(format.CompressionType(0x9), 0)
	require.Error(t, err)
}

func TestZstd_LevelClamping(t *testing.T) {
	require.Equal(t, DefaultLevel, NewZstdCompressor(0).Level())
	require.Equal(t, 1, NewZstdCompressor(-3).Level())
	require.Equal(t, 22, NewZstdCompressor(40).Level())
	require.Equal(t, 7, NewZstdCompressor(7).Level())
}

func TestZstd_Deterministic(t *testing.T) {
	payload := testPayload()
	zc := NewZstdCompressor(15)

	first, err := zc.Compress(payload)
	require.NoError(t, err)
	second, err := zc.Compress(payload)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestZstd_CorruptInput(t *testing.T) {
	zc := NewZstdCompressor(0)
	_, err := zc.Decompress([]byte("definitely not a zstd frame"))
	require.Error(t, err)
}
