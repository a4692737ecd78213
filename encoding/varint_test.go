package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adam-bouafia/logsim/errs"
)

func TestUvarint_RoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 127, 128, 129, 255, 256,
		16383, 16384, 1<<21 - 1, 1 << 21,
		1<<32 - 1, 1 << 32, 1<<63 - 1, 1 << 63, math.MaxUint64,
	}

	for _, v := range values {
		buf := AppendUvarint(nil, v)
		require.Len(t, buf, UvarintLen(v), "value %d: encoded length must be minimal", v)
		require.NotEqual(t, byte(0x80), buf[len(buf)-1]&0x80, "value %d: no trailing continuation", v)

		got, n, err := Uvarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestUvarint_Overflow(t *testing.T) {
	// 11 continuation bytes never form a valid u64.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := Uvarint(data, 0)
	require.ErrorIs(t, err, errs.ErrVarintOverflow)

	// 10 bytes whose final byte pushes past 64 bits.
	data = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}
	_, _, err = Uvarint(data, 0)
	require.ErrorIs(t, err, errs.ErrVarintOverflow)
}

func TestUvarint_Truncated(t *testing.T) {
	_, _, err := Uvarint(nil, 0)
	require.ErrorIs(t, err, errs.ErrTruncatedContainer)

	_, _, err = Uvarint([]byte{0x80}, 0)
	require.ErrorIs(t, err, errs.ErrTruncatedContainer)

	_, _, err = Uvarint([]byte{0x80, 0x80}, 0)
	require.ErrorIs(t, err, errs.ErrTruncatedContainer)
}

func TestZigzag_RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, 63, -64, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		require.Equal(t, v, Unzigzag(Zigzag(v)), "value %d", v)
	}

	// Small magnitudes must map to small unsigned values.
	require.Equal(t, uint64(0), Zigzag(0))
	require.Equal(t, uint64(1), Zigzag(-1))
	require.Equal(t, uint64(2), Zigzag(1))
	require.Equal(t, uint64(3), Zigzag(-2))
}

func TestUvarintReader_Stream(t *testing.T) {
	var buf []byte
	want := []uint64{5, 0, 1 << 40, 127, 300}
	for _, v := range want {
		buf = AppendUvarint(buf, v)
	}

	rd := NewUvarintReader(buf)
	var got []uint64
	for {
		v, ok := rd.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.NoError(t, rd.Err())
	require.Equal(t, want, got)
}
