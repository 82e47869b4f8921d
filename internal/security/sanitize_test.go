package security

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt; &amp; bye", SanitizeText("<b>hi</b> & bye"))
	assert.Equal(t, "plain", SanitizeText("plain"))
	assert.NotContains(t, SanitizeText(`"quoted"`), `"`)
}

func TestDetectInjectionPattern(t *testing.T) {
	cases := []struct {
		input  string
		sql    bool
		script bool
	}{
		{input: "calculus study group", sql: false, script: false},
		{input: "SELECT * FROM users", sql: true},
		{input: "name'; DROP TABLE posts", sql: true},
		{input: "x' OR 1=1", sql: true},
		{input: "admin --", sql: true},
		{input: "<script>alert(1)</script>", script: true},
		{input: "javascript:alert(1)", script: true},
		{input: `<img src=x onerror = "x">`, script: true},
		{input: "<IFRAME src=evil>", script: true},
	}

	for _, tc := range cases {
		report := DetectInjectionPattern(tc.input)
		assert.Equal(t, tc.sql, report.SQL, tc.input)
		assert.Equal(t, tc.script, report.Script, tc.input)
		assert.Equal(t, tc.sql || tc.script, report.Suspicious(), tc.input)
	}
}

func TestGenerateSecureRandom(t *testing.T) {
	value, err := GenerateSecureRandom(nil, 32)
	require.NoError(t, err)
	require.Len(t, value, 64)

	fixed := bytes.NewReader(bytes.Repeat([]byte{0xab}, 4))
	value, err = GenerateSecureRandom(fixed, 4)
	require.NoError(t, err)
	require.Equal(t, "abababab", value)

	_, err = GenerateSecureRandom(strings.NewReader(""), 4)
	require.Error(t, err)
}
