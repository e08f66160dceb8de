package mail

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	r := MustNewRenderer()

	for _, name := range []string{TemplateConfirmEmail, TemplateResetPassword} {
		t.Run(name, func(t *testing.T) {
			body, err := r.Render(name, Data{
				Username:         "alice",
				Email:            "alice@example.com",
				Link:             "https://accounts.example.com/x?token=a.b.c",
				ExpiresInMinutes: 30,
			})
			require.NoError(t, err)
			require.Contains(t, body, "Hello, alice!")
			require.Contains(t, body, `href="https://accounts.example.com/x?token=a.b.c"`)
			require.Contains(t, body, "30 minutes")
		})
	}
}

func TestRenderEscapesInput(t *testing.T) {
	t.Parallel()

	body, err := MustNewRenderer().Render(TemplateConfirmEmail, Data{Username: "<script>"})
	require.NoError(t, err)
	require.NotContains(t, body, "<script>")
}

func TestRenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	_, err := MustNewRenderer().Render("missing.html", Data{})
	require.ErrorIs(t, err, ErrTemplateRender)
}
