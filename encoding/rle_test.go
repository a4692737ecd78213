package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRLEColumn_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ids  []uint64
	}{
		{"long runs", []uint64{0, 0, 0, 0, 1, 1, 2, 2, 2, 2, 2}},
		{"no runs", []uint64{5, 3, 1, 4, 2}},
		{"single", []uint64{7}},
		{"alternating", []uint64{0, 1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewRLEColumnEncoder()
			defer enc.Finish()
			for _, id := range tt.ids {
				enc.Write(id)
			}
			require.Equal(t, len(tt.ids), enc.Len())

			rd := NewRLEColumnReader(enc.Bytes())
			var got []uint64
			for {
				v, ok := rd.Next()
				if !ok {
					break
				}
				got = append(got, v)
			}
			require.NoError(t, rd.Err())
			require.Equal(t, tt.ids, got)
		})
	}
}

func TestRLEColumn_EmptyPayload(t *testing.T) {
	rd := NewRLEColumnReader(nil)
	_, ok := rd.Next()
	require.False(t, ok)
	require.NoError(t, rd.Err())
}

func TestRLEColumn_RunCompression(t *testing.T) {
	// One run of 1000 identical ids must encode as a single pair.
	enc := NewRLEColumnEncoder()
	defer enc.Finish()
	for i := 0; i < 1000; i++ {
		enc.Write(3)
	}
	payload := enc.Bytes()
	require.Equal(t, UvarintLen(1000)+UvarintLen(3), len(payload))
}
