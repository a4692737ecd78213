package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adam-bouafia/logsim/container"
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
)

func mustCompress(t *testing.T, lines []string, opts ...container.EncoderOption) *container.Container {
	t.Helper()
	enc, err := container.NewEncoder(opts...)
	require.NoError(t, err)
	blob, _, err := enc.Compress(context.Background(), lines)
	require.NoError(t, err)
	c, err := container.Open(blob)
	require.NoError(t, err)

	return c
}

var apacheLines = []string{
	"[Thu Jun 09 06:07:04 2005] [notice] LDAP: Built with OpenLDAP",
	"[Thu Jun 09 06:07:05 2005] [notice] LDAP: SSL support unavailable",
	"[Thu Jun 09 06:07:06 2005] [error] LDAP: lookup failed",
}

func TestFilter_RoundTripIdentity(t *testing.T) {
	lines := []string{
		"[Thu Jun 09 06:07:04 2005] [notice] LDAP: Built with OpenLDAP",
		"[Thu Jun 09 06:07:05 2005] [notice] LDAP: SSL support unavailable",
		"[Thu Jun 09 06:07:06 2005] [error] LDAP: lookup failed",
		"",
		"sshd[4321]: Failed password for root from 10.0.0.5",
		"sshd[4322]: Failed password for admin from 10.0.0.6",
		"sshd[4323]: Failed password for guest from 10.0.0.7",
		"completely unique line that matches nothing else",
		"GET https://example.com/api/v1/users returned 200",
		"GET https://example.com/api/v1/items returned 404",
		"GET https://example.com/api/v1/carts returned 500",
		"said \"hello there\" and left",
		"said \"goodbye now\" and left",
		"said \"nothing at all\" and left",
		"   indented   with   spaces   ",
		"556e8400-e29b-41d4-a716-446655440000 request traced",
		"662e8400-e29b-41d4-a716-446655440001 request traced",
		"770e8400-e29b-41d4-a716-446655440002 request traced",
	}

	c := mustCompress(t, lines)
	res, err := Filter(c, Predicate{}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Unreadable)
	require.Len(t, res.Matches, len(lines))

	for i, m := range res.Matches {
		require.Equal(t, uint64(i), m.Line, "matches come back in input order")
		require.Equal(t, lines[i], m.Text, "line %d must reconstruct byte-exact", i)
	}
}

func TestFilter_SeverityApache(t *testing.T) {
	c := mustCompress(t, apacheLines)

	res, err := Filter(c, Predicate{Severities: []string{"error"}}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Unreadable)
	require.Len(t, res.Matches, 1)
	require.Equal(t, uint64(2), res.Matches[0].Line)
	require.Equal(t, apacheLines[2], res.Matches[0].Text)
}

func TestFilter_SeverityCaseInsensitive(t *testing.T) {
	c := mustCompress(t, apacheLines)

	res, err := Filter(c, Predicate{Severities: []string{"ERROR"}}, 0)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	res, err = Filter(c, Predicate{Severities: []string{"NOTICE", "error"}}, 0)
	require.NoError(t, err)
	require.Len(t, res.Matches, 3)
}

func TestFilter_SeverityAbsent(t *testing.T) {
	c := mustCompress(t, apacheLines)

	res, err := Filter(c, Predicate{Severities: []string{"fatal"}}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Matches)
}

func TestFilter_TimeRange(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 1000; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		lines = append(lines, ts.Format("2006-01-02 15:04:05")+" INFO worker heartbeat ok")
	}

	c := mustCompress(t, lines)

	lo := base.Add(100 * time.Second).UnixMilli()
	hi := base.Add(199 * time.Second).UnixMilli()
	res, err := Filter(c, Predicate{Time: &TimeRange{Lo: lo, Hi: hi}}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Unreadable)
	require.Len(t, res.Matches, 100)
	for i, m := range res.Matches {
		require.Equal(t, uint64(100+i), m.Line)
		require.Equal(t, lines[100+i], m.Text)
	}
}

func TestFilter_IPDictionaryMiss(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		addr := "10.0.0.1"
		if i%2 == 1 {
			addr = "10.0.0.2"
		}
		lines = append(lines, fmt.Sprintf("conn %s established quickly", addr))
	}

	c := mustCompress(t, lines)

	res, err := Filter(c, Predicate{IPv4: "10.0.0.3"}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Matches, "dictionary miss skips the template entirely")

	res, err = Filter(c, Predicate{IPv4: "10.0.0.2"}, 0)
	require.NoError(t, err)
	require.Len(t, res.Matches, 10)
	for _, m := range res.Matches {
		require.Equal(t, uint64(1), m.Line%2)
	}
}

func TestFilter_Conjunction(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 100; i++ {
		sev := "info"
		if i%10 == 0 {
			sev = "error"
		}
		ts := base.Add(time.Duration(i) * time.Second)
		lines = append(lines, fmt.Sprintf("%s %s request %d handled", ts.Format("2006-01-02 15:04:05"), sev, i))
	}

	c := mustCompress(t, lines)

	lo := base.UnixMilli()
	hi := base.Add(49 * time.Second).UnixMilli()
	res, err := Filter(c, Predicate{
		Severities: []string{"error"},
		Time:       &TimeRange{Lo: lo, Hi: hi},
	}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Unreadable)

	// Errors at lines 0,10,20,...,90; inside the first 50 seconds: 0..40.
	require.Len(t, res.Matches, 5)
	for i, m := range res.Matches {
		require.Equal(t, uint64(i*10), m.Line)
	}
}

func TestFilter_Limit(t *testing.T) {
	c := mustCompress(t, apacheLines)

	res, err := Filter(c, Predicate{Severities: []string{"notice", "error"}}, 2)
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	require.Equal(t, uint64(0), res.Matches[0].Line, "limit keeps the first matches in input order")
	require.Equal(t, uint64(1), res.Matches[1].Line)
}

func TestFilter_ColumnPruning(t *testing.T) {
	// One template whose severity is the same on every line; a severity
	// filter that matches nothing must not touch any column block.
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("[info] cache warm %d finished early", i))
	}

	c := mustCompress(t, lines)
	require.Equal(t, int64(0), c.DecodedColumnBlocks())

	// No matches: only the severity lookup path may run, and here the
	// severity froze into a constant literal slot, so zero blocks decode.
	res, err := Filter(c, Predicate{Severities: []string{"fatal"}}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Matches)
	require.Equal(t, int64(0), c.DecodedColumnBlocks())
}

func TestFilter_VariableSeverityPruning(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		sev := "info"
		if i%3 == 0 {
			sev = "warn"
		}
		lines = append(lines, fmt.Sprintf("[%s] job %d scheduled promptly", sev, i))
	}

	c := mustCompress(t, lines)

	// The severity column varies, so evaluating the predicate costs
	// exactly one block; with zero matches nothing else decodes.
	res, err := Filter(c, Predicate{Severities: []string{"fatal"}}, 0)
	require.NoError(t, err)
	require.Empty(t, res.Matches)
	require.Equal(t, int64(1), c.DecodedColumnBlocks(),
		"only the severity column may be decoded for a non-matching severity filter")
}

func TestFilter_CorruptedTemplateIsolated(t *testing.T) {
	// Shape A carries a message column we will corrupt; shape B is
	// independent and must keep answering.
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf("[notice] stage %d says all good on attempt number%d", i, i*7))
	}
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf("metric cpu.load sampled at level %d", i))
	}

	enc, err := container.NewEncoder(container.WithCompression(format.CompressionNone))
	require.NoError(t, err)
	blob, _, err := enc.Compress(context.Background(), lines)
	require.NoError(t, err)

	// Locate template A's message column payload through a clean reader.
	clean, err := container.Open(blob)
	require.NoError(t, err)
	templates, err := clean.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 2)
	msgCol, ok := templates[0].FindColumn(format.FieldMessage)
	require.True(t, ok)
	block, err := clean.ColumnBlock(0, msgCol)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(block.Payload), 10, "need room to force a varint overflow")

	corrupted := append([]byte(nil), blob...)
	for i := 0; i < 10; i++ {
		corrupted[int(block.PayloadBase)+i] = 0xFF
	}

	c, err := container.Open(corrupted)
	require.NoError(t, err)
	require.Error(t, c.Verify())
	require.Equal(t, uint64(24), Count(c), "count survives body corruption")

	// Rendering template A hits the corrupted column and is reported as
	// unreadable; template B still answers.
	res, err := Filter(c, Predicate{}, 0)
	require.NoError(t, err)
	require.Len(t, res.Unreadable, 1)
	require.Equal(t, uint32(0), res.Unreadable[0].TemplateID)
	faultErr := res.Unreadable[0].Err
	require.True(t,
		errorIsAny(faultErr, errs.ErrVarintOverflow, errs.ErrDictionaryIDOutOfRange),
		"got %v", faultErr)
	fe, ok := errs.AsFormatError(faultErr)
	require.True(t, ok)
	require.GreaterOrEqual(t, fe.Offset, block.PayloadBase)

	require.Len(t, res.Matches, 12)
	for i, m := range res.Matches {
		require.Equal(t, lines[12+i], m.Text)
	}
}

func errorIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if fe, ok := errs.AsFormatError(err); ok && fe.Kind == target {
			return true
		}
	}

	return false
}

func TestCount_IsFooterOnly(t *testing.T) {
	c := mustCompress(t, apacheLines)
	require.Equal(t, uint64(3), Count(c))
	require.Equal(t, int64(0), c.DecodedColumnBlocks())
}

func TestFilterContext_Cancelled(t *testing.T) {
	c := mustCompress(t, apacheLines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FilterContext(ctx, c, Predicate{}, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPredicate_Empty(t *testing.T) {
	require.True(t, Predicate{}.Empty())
	require.False(t, Predicate{IPv4: "10.0.0.1"}.Empty())
	require.False(t, Predicate{Severities: []string{"warn"}}.Empty())
	require.False(t, Predicate{Time: &TimeRange{}}.Empty())
}
