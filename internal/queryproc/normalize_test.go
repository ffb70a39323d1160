package queryproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/apperr"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := New()

	tests := []struct {
		name    string
		query   string
		hint    string
		wantErr bool
	}{
		{name: "simple query", query: "React Hooks", hint: "react", wantErr: false},
		{name: "too short", query: "a", hint: "", wantErr: true},
		{name: "too long", query: string(make([]byte, 257)), hint: "", wantErr: true},
		{name: "disallowed chars", query: "react <script>", hint: "", wantErr: true},
		{name: "min length boundary", query: "ab", hint: "", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The "too long" and "disallowed chars" fixtures use raw bytes;
			// replace embedded NULs produced by make([]byte, 257) with 'a'.
			query := tt.query
			if tt.name == "too long" {
				b := make([]byte, 257)
				for i := range b {
					b[i] = 'a'
				}
				query = string(b)
			}

			got, err := n.Normalize(query, tt.hint)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.Fingerprint)
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := New()

	first, err := n.Normalize("Python Async Await Tutorial", "python")
	require.NoError(t, err)

	second, err := n.Normalize(first.NormalizedText, first.TechnologyHint)
	require.NoError(t, err)

	assert.Equal(t, first.NormalizedText, second.NormalizedText)
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("python async await", "python")
	b := Fingerprint("python async await", "python")
	c := Fingerprint("python async await", "go")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
