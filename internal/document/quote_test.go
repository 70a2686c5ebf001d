package document

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", `"hello"`},
		{"empty", "", `""`},
		{"double quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `C:\temp`, `"C:\\temp"`},
		{"newline", "a\nb", `"a\nb"`},
		{"carriage return and tab", "a\r\tb", `"a\r\tb"`},
		{"backspace and form feed", "\b\f", `"\b\f"`},
		{"other control", "\x00\x1f", `"\u0000\u001f"`},
		{"unicode passes through", "héllo 日本 🚀", `"héllo 日本 🚀"`},
		{"del passes through", "\x7f", "\"\x7f\""},
		{"invalid utf8", "a\xffb", "\"a\ufffdb\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, quote(tt.input))
		})
	}
}

func TestQuote_RoundTrips(t *testing.T) {
	inputs := []string{
		`"`, `\`, `\"`, "\n\r\t", "line1\nline2 \"quoted\" \\ end",
		"\u2028\u2029", "\x01\x02\x03", "tab\there", `{"json":"inside"}`,
	}

	for _, in := range inputs {
		var out string
		require.NoError(t, json.Unmarshal([]byte(quote(in)), &out), "input %q", in)
		assert.Equal(t, in, out)
	}
}

func quote(s string) string {
	var b strings.Builder
	Quote(&b, s)
	return b.String()
}
