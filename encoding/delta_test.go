package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeltaColumn_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
	}{
		{"regular intervals", []int64{1000, 2000, 3000, 4000, 5000}},
		{"jittery", []int64{1000, 1999, 3003, 3998, 5001}},
		{"descending", []int64{5000, 4000, 3000}},
		{"negative epochs", []int64{-62135596800000, -62135596799000, -62135596798000}},
		{"single", []int64{42}},
		{"zero start", []int64{0, 0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewDeltaColumnEncoder()
			defer enc.Finish()
			for _, v := range tt.values {
				enc.Write(v)
			}
			require.Equal(t, len(tt.values), enc.Len())

			rd := NewDeltaColumnReader(enc.Bytes())
			var got []int64
			for {
				v, ok := rd.Next()
				if !ok {
					break
				}
				got = append(got, v)
			}
			require.NoError(t, rd.Err())
			require.Equal(t, tt.values, got)
		})
	}
}

func TestDeltaAt(t *testing.T) {
	values := []int64{100, 250, 275, 900}
	enc := NewDeltaColumnEncoder()
	defer enc.Finish()
	for _, v := range values {
		enc.Write(v)
	}
	payload := enc.Bytes()

	for i, want := range values {
		got, err := DeltaAt(payload, i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := DeltaAt(payload, len(values))
	require.Error(t, err)
}
