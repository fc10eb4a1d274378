package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecord(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		tc, diags := FromRecord(2, map[string]any{
			ColAPIName:            "Users",
			ColTestCase:           "list",
			ColMethod:             "post",
			ColURL:                " http://x/a ",
			ColExpectedStatusCode: "201",
			ColExpectedTimeMs:     500.0,
		})

		assert.Empty(t, diags)
		assert.Equal(t, 2, tc.Row)
		assert.Equal(t, "post", tc.Method)
		assert.Equal(t, "http://x/a", tc.URL)
		assert.Equal(t, 201, tc.ExpectedStatusCode)
		assert.Equal(t, 500.0, tc.ExpectedTimeMs)
		assert.Equal(t, "Users - list", tc.DisplayName())
	})

	t.Run("method case is kept", func(t *testing.T) {
		for _, method := range []string{"GET", "get", "Patch", "PROPFIND"} {
			tc, _ := FromRecord(2, map[string]any{ColURL: "http://x/a", ColMethod: " " + method + " "})
			assert.Equal(t, method, tc.Method)
		}
	})

	t.Run("method defaults to GET", func(t *testing.T) {
		tc, _ := FromRecord(2, map[string]any{ColURL: "http://x/a"})
		assert.Equal(t, DefaultMethod, tc.Method)

		tc, _ = FromRecord(3, map[string]any{ColURL: "http://x/a", ColMethod: "  "})
		assert.Equal(t, DefaultMethod, tc.Method)
	})

	t.Run("missing url is a diagnostic", func(t *testing.T) {
		tc, diags := FromRecord(4, map[string]any{ColAPIName: "Users"})
		require.Len(t, diags, 1)
		assert.True(t, errors.Is(diags[0], ErrMissingURL))
		assert.Equal(t, "", tc.URL)
	})

	t.Run("unparsable numbers", func(t *testing.T) {
		tc, diags := FromRecord(5, map[string]any{
			ColURL:                "http://x/a",
			ColExpectedStatusCode: "ok",
			ColExpectedTimeMs:     "fast",
		})
		require.Len(t, diags, 2)
		assert.True(t, errors.Is(diags[0], ErrInvalidNumber))
		assert.Contains(t, diags[0].Error(), "row 5")
		assert.Zero(t, tc.ExpectedStatusCode)
		assert.Zero(t, tc.ExpectedTimeMs)
	})

	t.Run("extra columns are kept", func(t *testing.T) {
		tc, _ := FromRecord(6, map[string]any{ColURL: "http://x/a", "Owner": "team-a"})
		assert.Equal(t, map[string]string{"Owner": "team-a"}, tc.Extra)
	})
}

func TestVerdictValid(t *testing.T) {
	assert.True(t, VerdictPass.Valid())
	assert.True(t, VerdictFail.Valid())
	assert.True(t, VerdictUnmatched.Valid())
	assert.False(t, Verdict("").Valid())
	assert.False(t, Verdict("ERROR").Valid())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"longer", "abcdef", 5, "abcde"},
		{"multibyte kept whole", "héllo wörld", 7, "héllo w"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestTruncate_SnippetLength(t *testing.T) {
	body := strings.Repeat("x", 400)
	assert.Len(t, Truncate(body, SnippetLength), SnippetLength)
}

func TestSameValue(t *testing.T) {
	assert.True(t, SameValue(200, "200"))
	assert.True(t, SameValue(200.0, 200))
	assert.True(t, SameValue("abc", "abc"))
	assert.False(t, SameValue(200, 404))
	assert.False(t, SameValue("200", "ok"))
}
