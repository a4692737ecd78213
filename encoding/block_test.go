package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
)

func TestBlock_RoundTrip(t *testing.T) {
	header := []byte{0x01}
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	data := AppendBlock(nil, format.CodecDictGlobal, header, payload)
	data = AppendBlock(data, format.CodecVarint, nil, []byte{0x05})

	first, next, err := ReadBlock(data, 0, 100)
	require.NoError(t, err)
	require.Equal(t, format.CodecDictGlobal, first.Tag)
	require.Equal(t, header, first.Header)
	require.Equal(t, payload, first.Payload)
	require.Equal(t, int64(104), first.PayloadBase, "payload starts after tag, header len, header, payload len")

	second, _, err := ReadBlock(data, next, 100)
	require.NoError(t, err)
	require.Equal(t, format.CodecVarint, second.Tag)
	require.Empty(t, second.Header)
	require.Equal(t, []byte{0x05}, second.Payload)
}

func TestBlock_UnknownTag(t *testing.T) {
	data := []byte{0x7F, 0x00, 0x00}
	_, _, err := ReadBlock(data, 0, 0)
	require.ErrorIs(t, err, errs.ErrUnknownCodecTag)

	fe, ok := errs.AsFormatError(err)
	require.True(t, ok)
	require.Equal(t, "column_block", fe.Section)
	require.Equal(t, int64(0), fe.Offset)
}

func TestBlock_Truncated(t *testing.T) {
	data := AppendBlock(nil, format.CodecRaw, nil, []byte("payload"))

	for cut := 1; cut < len(data); cut++ {
		_, _, err := ReadBlock(data[:cut], 0, 0)
		if cut == 1 {
			// Tag alone parses; the header length is what's missing.
			require.Error(t, err)
			continue
		}
		require.Error(t, err, "cut at %d", cut)
	}
}

func TestRawColumn_RoundTrip(t *testing.T) {
	values := []string{"", "a", "longer value with spaces", "\x00\xFFbinary"}

	enc := NewRawColumnEncoder()
	for _, v := range values {
		enc.Write(v)
	}
	require.Equal(t, format.CodecRaw, enc.Tag())
	payload := append([]byte(nil), enc.Bytes()...)
	enc.Finish()

	rd := NewRawColumnReader(payload)
	var got []string
	for {
		v, ok := rd.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.NoError(t, rd.Err())
	require.Equal(t, values, got)

	v, err := RawAt(payload, 2)
	require.NoError(t, err)
	require.Equal(t, values[2], v)
}

func TestIntColumn_RoundTrip(t *testing.T) {
	t.Run("varint non-negative", func(t *testing.T) {
		values := []int64{0, 1, 127, 128, 1 << 40}
		enc := NewVarintColumnEncoder()
		for _, v := range values {
			enc.Write(v)
		}
		require.Equal(t, format.CodecVarint, enc.Tag())
		payload := append([]byte(nil), enc.Bytes()...)
		enc.Finish()

		for i, want := range values {
			got, err := IntAt(payload, i, false)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("zigzag signed", func(t *testing.T) {
		values := []int64{-5, 5, 0, -1 << 40}
		enc := NewZigzagColumnEncoder()
		for _, v := range values {
			enc.Write(v)
		}
		require.Equal(t, format.CodecZigzagVarint, enc.Tag())
		payload := append([]byte(nil), enc.Bytes()...)
		enc.Finish()

		for i, want := range values {
			got, err := IntAt(payload, i, true)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})
}
