package container

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/section"
)

var apacheLines = []string{
	"[Thu Jun 09 06:07:04 2005] [notice] LDAP: Built with OpenLDAP",
	"[Thu Jun 09 06:07:05 2005] [notice] LDAP: SSL support unavailable",
	"[Thu Jun 09 06:07:06 2005] [error] LDAP: lookup failed",
}

func compressLines(t *testing.T, lines []string, opts ...EncoderOption) []byte {
	t.Helper()
	enc, err := NewEncoder(opts...)
	require.NoError(t, err)
	blob, stats, err := enc.Compress(context.Background(), lines)
	require.NoError(t, err)
	require.Equal(t, len(lines), stats.LineCount)

	return blob
}

func TestEncoder_ApacheRoundTrip(t *testing.T) {
	blob := compressLines(t, apacheLines)

	c, err := Open(blob)
	require.NoError(t, err)
	require.Equal(t, StateReady, c.State())
	require.NoError(t, c.Verify())
	require.Equal(t, uint64(3), c.Count())
	require.Equal(t, 1, c.NumTemplates())

	templates, err := c.Templates()
	require.NoError(t, err)
	require.Equal(t, "[<TIMESTAMP>] [<SEVERITY>] LDAP: <MESSAGE>", templates[0].Pattern())

	globals, err := c.Globals()
	require.NoError(t, err)
	require.Equal(t, []string{"notice", "error"}, globals.Severity.Entries())
}

func TestEncoder_Deterministic(t *testing.T) {
	first := compressLines(t, apacheLines)
	second := compressLines(t, apacheLines)
	require.Equal(t, first, second, "identical input must produce byte-identical containers")
}

func TestEncoder_EmptyInput(t *testing.T) {
	blob := compressLines(t, nil)

	c, err := Open(blob)
	require.NoError(t, err)
	require.Equal(t, uint64(0), c.Count())
	require.Equal(t, 0, c.NumTemplates())
}

func TestEncoder_SingletonContainer(t *testing.T) {
	blob := compressLines(t, []string{"only one line here today"})

	c, err := Open(blob)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Count())
	require.Equal(t, 1, c.NumTemplates())
}

func TestEncoder_CompressionTypes(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionZstd, format.CompressionS2, format.CompressionLZ4, format.CompressionNone,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			blob := compressLines(t, apacheLines, WithCompression(ct))
			c, err := Open(blob)
			require.NoError(t, err)
			require.Equal(t, uint64(3), c.Count())
			require.NoError(t, c.Verify())
		})
	}
}

func TestEncoder_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc, err := NewEncoder()
	require.NoError(t, err)
	_, _, err = enc.Compress(ctx, apacheLines)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEncoder_TemplateBudget(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		s := "x"
		for j := 0; j <= i; j++ {
			s += " [y]"
		}
		lines = append(lines, s)
	}

	enc, err := NewEncoder(WithTemplateCeiling(3))
	require.NoError(t, err)
	_, _, err = enc.Compress(context.Background(), lines)
	require.ErrorIs(t, err, errs.ErrTemplateBudgetExceeded)
}

func TestEncoder_Stats(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	blob, stats, err := enc.Compress(context.Background(), apacheLines)
	require.NoError(t, err)

	require.Equal(t, 3, stats.LineCount)
	require.Equal(t, 1, stats.TemplateCount)
	require.Equal(t, int64(len(blob)), stats.CompressedSize)
	require.Greater(t, stats.OriginalSize, int64(0))
	require.InDelta(t, 100.0, stats.CoveragePercent, 0.01)
	require.Greater(t, stats.CompressionRatio, 0.0)

	data, err := stats.JSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"template_count":1`)
}

func TestOpen_Errors(t *testing.T) {
	blob := compressLines(t, apacheLines)

	t.Run("invalid magic", func(t *testing.T) {
		corrupted := append([]byte(nil), blob...)
		corrupted[0] = 'X'
		_, err := Open(corrupted)
		require.ErrorIs(t, err, errs.ErrInvalidMagic)
	})

	t.Run("unsupported version", func(t *testing.T) {
		corrupted := append([]byte(nil), blob...)
		corrupted[4] = 0x09
		_, err := Open(corrupted)
		require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Open(blob[:8])
		require.ErrorIs(t, err, errs.ErrTruncatedContainer)
	})

	t.Run("entropy garbage", func(t *testing.T) {
		corrupted := append([]byte(nil), blob[:section.PreludeSize]...)
		corrupted = append(corrupted, []byte("garbage body that is not zstd")...)
		_, err := Open(corrupted)
		require.ErrorIs(t, err, errs.ErrEntropyDecodeFailed)
	})
}

func TestCount_DecodesNoColumns(t *testing.T) {
	blob := compressLines(t, apacheLines)

	c, err := Open(blob)
	require.NoError(t, err)
	require.Equal(t, uint64(3), c.Count())
	require.Equal(t, int64(0), c.DecodedColumnBlocks(), "count must not touch any column block")
}

func TestChecksum_MismatchDetected(t *testing.T) {
	blob := compressLines(t, apacheLines, WithCompression(format.CompressionNone))

	// With the entropy pass disabled the stored body is the decoded body;
	// flip one byte inside it, past the template table.
	c, err := Open(blob)
	require.NoError(t, err)
	tmpl, err := c.Templates()
	require.NoError(t, err)
	require.NotEmpty(t, tmpl)

	block, err := c.ColumnBlock(0, 0)
	require.NoError(t, err)

	corrupted := append([]byte(nil), blob...)
	corrupted[block.PayloadBase] ^= 0xFF

	cc, err := Open(corrupted)
	require.NoError(t, err, "open survives body corruption")
	require.Error(t, cc.Verify())
	require.ErrorIs(t, cc.Verify(), errs.ErrChecksumMismatch)
	require.Equal(t, uint64(3), cc.Count(), "count still answers from the footer")
}

func TestTemplateRows_Alignment(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("alpha step %d done fine", i))
	}
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("beta step %d done fine", i))
	}

	blob := compressLines(t, lines)
	c, err := Open(blob)
	require.NoError(t, err)
	require.Equal(t, 2, c.NumTemplates())

	rowsA, err := c.TemplateRows(0)
	require.NoError(t, err)
	rowsB, err := c.TemplateRows(1)
	require.NoError(t, err)
	require.Len(t, rowsA, 10)
	require.Len(t, rowsB, 10)
	require.Equal(t, uint64(0), rowsA[0])
	require.Equal(t, uint64(10), rowsB[0])
}

func TestTimestampColumn_DeltaEncoded(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, base.Add(time.Duration(i)*time.Second).Format("2006-01-02 15:04:05")+" INFO worker heartbeat ok")
	}

	blob := compressLines(t, lines)
	c, err := Open(blob)
	require.NoError(t, err)
	require.Equal(t, 1, c.NumTemplates())

	templates, err := c.Templates()
	require.NoError(t, err)
	col, ok := templates[0].FindColumn(format.FieldTimestamp)
	require.True(t, ok)

	block, err := c.ColumnBlock(0, col)
	require.NoError(t, err)
	require.Equal(t, format.CodecDeltaVarint, block.Tag)
}
