package sanitizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePolicies(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		policy   PolicyPreset
		expected string
	}{
		{
			name:     "raw policy passes through",
			input:    "hello\x00world\n",
			policy:   PolicyRaw,
			expected: "hello\x00world\n",
		},
		{
			name:     "txt policy hex-encodes non-printable",
			input:    "test\x00data",
			policy:   PolicyTxt,
			expected: "test<00>data",
		},
		{
			name:     "txt policy preserves printable",
			input:    "Hello World 123!@#",
			policy:   PolicyTxt,
			expected: "Hello World 123!@#",
		},
		{
			name:     "json policy escapes control chars",
			input:    "line1\nline2\ttab",
			policy:   PolicyJSON,
			expected: "line1\\nline2\\ttab",
		},
		{
			name:     "shell policy strips metacharacters",
			input:    "rm -rf $(pwd); echo done",
			policy:   PolicyShell,
			expected: "rm-rfpwdechodone",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New().Policy(tc.policy)
			assert.Equal(t, tc.expected, s.Sanitize(tc.input))
		})
	}
}

func TestSerializerWriteString(t *testing.T) {
	san := New().Policy(PolicyTxt)

	t.Run("txt quotes strings with spaces", func(t *testing.T) {
		se := NewSerializer("txt", san)
		var buf []byte
		se.WriteString(&buf, "hello world")
		assert.Equal(t, `"hello world"`, string(buf))
	})

	t.Run("txt leaves simple strings unquoted", func(t *testing.T) {
		se := NewSerializer("txt", san)
		var buf []byte
		se.WriteString(&buf, "single")
		assert.Equal(t, "single", string(buf))
	})

	t.Run("json always quotes and escapes", func(t *testing.T) {
		se := NewSerializer("json", san)
		var buf []byte
		se.WriteString(&buf, "line1\nline2\t\"quoted\"")
		assert.Equal(t, `"line1\nline2\t\"quoted\""`, string(buf))
	})
}

func TestSerializerWriteNilAndBool(t *testing.T) {
	san := New()

	se := NewSerializer("json", san)
	var buf []byte
	se.WriteNil(&buf)
	assert.Equal(t, "null", string(buf))

	buf = nil
	se.WriteBool(&buf, true)
	assert.Equal(t, "true", string(buf))

	raw := NewSerializer("raw", san)
	buf = nil
	raw.WriteNil(&buf)
	assert.Equal(t, "nil", string(buf))
}

func TestSerializerNeedsQuotes(t *testing.T) {
	se := NewSerializer("txt", New())
	assert.True(t, se.NeedsQuotes(""))
	assert.True(t, se.NeedsQuotes("has space"))
	assert.False(t, se.NeedsQuotes("nospace"))

	jsonSe := NewSerializer("json", New())
	assert.True(t, jsonSe.NeedsQuotes("anything"))
}

func TestSerializerWriteComplex(t *testing.T) {
	san := New()

	rawSe := NewSerializer("raw", san)
	var buf []byte
	rawSe.WriteComplex(&buf, map[string]int{"a": 1})
	assert.Contains(t, string(buf), "map[")

	txtSe := NewSerializer("txt", san)
	buf = nil
	txtSe.WriteComplex(&buf, []int{1, 2, 3})
	assert.Contains(t, string(buf), "[1 2 3]")
}

func BenchmarkSanitize(b *testing.B) {
	input := strings.Repeat("normal text\x00\n\t", 100)

	benchmarks := []struct {
		name   string
		policy PolicyPreset
	}{
		{"Raw", PolicyRaw},
		{"Txt", PolicyTxt},
		{"JSON", PolicyJSON},
		{"Shell", PolicyShell},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			s := New().Policy(bm.policy)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = s.Sanitize(input)
			}
		})
	}
}
