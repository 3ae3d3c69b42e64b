package encoding

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileSecure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	require.NoError(t, WriteFileSecure(path, []byte("{}\n")))
	assert.True(t, FileExists(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"object", `{"id": 1}`, false},
		{"trailing whitespace", "{\"id\": 1}\n\n", false},
		{"malformed", `{"id": `, true},
		{"two values", `{"id": 1} {"id": 2}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON[map[string]any](strings.NewReader(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 1.0, got["id"])
		})
	}
}

func TestMarshalIndent_NoHTMLEscape(t *testing.T) {
	data, err := MarshalIndent(map[string]string{"q": "a<b"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"q\": \"a<b\"\n}\n", string(data))
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{name: "number", input: "42", want: 42.0},
		{name: "quoted string", input: `"1"`, want: "1"},
		{name: "bare word", input: "alice", want: "alice"},
		{name: "array", input: `[1, "a"]`, want: []any{1.0, "a"}},
		{name: "not json", input: "1a", want: "1a"},
		{name: "null", input: "null", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLiteral(tt.input))
		})
	}
}
