package token

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adam-bouafia/logsim/format"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want format.FieldType
	}{
		{"550e8400-e29b-41d4-a716-446655440000", format.FieldUUID},
		{"10.0.0.1", format.FieldIPv4},
		{"192.168.255.254", format.FieldIPv4},
		{"fe80::1", format.FieldIPv6},
		{"2001:db8::ff00:42:8329", format.FieldIPv6},
		{"2005-06-09T06:07:04", format.FieldTimestamp},
		{"2005-06-09T06:07:04Z", format.FieldTimestamp},
		{"06:07:04", format.FieldTimestamp},
		{"12345", format.FieldInteger},
		{"-42", format.FieldInteger},
		{"0xDEADBEEF", format.FieldHex},
		{"deadbeef01", format.FieldHex},
		{"example.com", format.FieldHost},
		{"api.internal.example.org", format.FieldHost},
		{"/var/log/syslog", format.FieldPath},
		{"https://example.com/index.html", format.FieldURL},
		{"ERROR", format.FieldSeverity},
		{"notice", format.FieldSeverity},
		{"Warning", format.FieldSeverity},
		{"OpenLDAP", format.FieldLiteral},
		{"word", format.FieldLiteral},
		{"v1.2.3", format.FieldLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, conf := Classify(tt.text)
			require.Equal(t, tt.want, got)
			require.Greater(t, conf, 0.0)
			require.LessOrEqual(t, conf, 1.0)
		})
	}
}

func TestClassify_NeverMessage(t *testing.T) {
	// MESSAGE denotes the free-form tail and belongs to the extractor.
	for _, text := range []string{"anything", "10.0.0.1", "hello-world", ""} {
		got, _ := Classify(text)
		require.NotEqual(t, format.FieldMessage, got)
	}
}

func TestParseTimestamp_RoundTripOnly(t *testing.T) {
	ts, layout, ok := ParseTimestamp("Thu Jun 09 06:07:04 2005")
	require.True(t, ok)
	require.Equal(t, "Mon Jan 02 15:04:05 2006", layout)
	require.Equal(t, "Thu Jun 09 06:07:04 2005", ts.Format(layout))

	_, _, ok = ParseTimestamp("not a timestamp")
	require.False(t, ok)

	// A weekday that contradicts the date must not parse.
	_, _, ok = ParseTimestamp("Fri Jun 09 06:07:04 2005")
	require.False(t, ok)
}

func TestAnnotate_CoalescesApacheTimestamp(t *testing.T) {
	line := "[Thu Jun 09 06:07:04 2005] [notice] LDAP: Built with OpenLDAP"
	tokens := Annotate(line)

	var timestamps, severities []Token
	for _, tok := range tokens {
		switch tok.Label {
		case format.FieldTimestamp:
			timestamps = append(timestamps, tok)
		case format.FieldSeverity:
			severities = append(severities, tok)
		}
	}

	require.Len(t, timestamps, 1)
	require.Equal(t, "Thu Jun 09 06:07:04 2005", timestamps[0].Text)
	require.Len(t, severities, 1)
	require.Equal(t, "notice", severities[0].Text)
}

func TestAnnotate_SyslogProcessID(t *testing.T) {
	tokens := Annotate("sshd[4321]: session opened")

	var pids []Token
	for _, tok := range tokens {
		if tok.Label == format.FieldProcessID {
			pids = append(pids, tok)
		}
	}
	require.Len(t, pids, 1)
	require.Equal(t, "4321", pids[0].Text)
}

func TestAnnotate_ISOTimestampPair(t *testing.T) {
	tokens := Annotate("2025-01-02 15:04:05 INFO worker started")

	require.Equal(t, format.FieldTimestamp, tokens[0].Label)
	require.Equal(t, "2025-01-02 15:04:05", tokens[0].Text)
}
