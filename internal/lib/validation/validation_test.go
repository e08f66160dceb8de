package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		username string
		want     bool
	}{
		{"alice", true},
		{"alice_b-42", true},
		{strings.Repeat("a", 22), true},
		{strings.Repeat("a", 23), false},
		{"", false},
		{"victim@example.com", false},
		{"has space", false},
		{"semi;colon", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			require.Equal(t, tt.want, ValidUsername(tt.username))
		})
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	require.True(t, ValidEmail("alice@example.com"))
	require.False(t, ValidEmail("alice"))
	require.False(t, ValidEmail(strings.Repeat("a", 95)+"@example.com"))
}

func TestUsernameTag(t *testing.T) {
	t.Parallel()

	type request struct {
		Username string `validate:"required,username"`
	}

	v := New()
	require.NoError(t, v.Struct(request{Username: "alice"}))
	require.Error(t, v.Struct(request{Username: "alice@example.com"}))
	require.Error(t, v.Struct(request{Username: strings.Repeat("b", 23)}))
}
