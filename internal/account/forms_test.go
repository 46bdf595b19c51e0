package account

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInFormNormalizesCode(t *testing.T) {
	form := SignInForm{AssistantCode: "  al ", Password: "secret"}
	require.NoError(t, form.Validate())
	assert.Equal(t, "AL", form.AssistantCode)
}

func TestSignInFormRequiresBothFields(t *testing.T) {
	form := SignInForm{Password: "secret"}
	err := form.Validate()
	vErr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, MsgCodeRequired, vErr.Message)

	form = SignInForm{AssistantCode: "AL"}
	err = form.Validate()
	vErr, ok = IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, MsgPasswordRequired, vErr.Message)
}

func TestPasswordForm(t *testing.T) {
	cases := []struct {
		name string
		form PasswordForm
		want string
	}{
		{"valid", PasswordForm{Current: "a", New: "b", Confirm: "b"}, ""},
		{"missing current", PasswordForm{New: "b", Confirm: "b"}, MsgPasswordFieldsRequired},
		{"missing confirm", PasswordForm{Current: "a", New: "b"}, MsgPasswordFieldsRequired},
		{"mismatch", PasswordForm{Current: "a", New: "b", Confirm: "c"}, MsgPasswordMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.form.Validate()
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCheckImageSniffsContent(t *testing.T) {
	png := writeFile(t, "avatar.bin", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	img, err := CheckImage(png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "avatar.bin", img.Filename)

	jpeg := writeFile(t, "me.jpg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	img, err = CheckImage(jpeg)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
}

func TestCheckImageRejectsOtherTypes(t *testing.T) {
	fake := writeFile(t, "photo.png", []byte("just some text, not a picture"))
	_, err := CheckImage(fake)
	vErr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, MsgImageFormat, vErr.Message)

	_, err = CheckImage("")
	_, ok = IsValidation(err)
	assert.True(t, ok)

	_, err = CheckImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	_, ok = IsValidation(err)
	assert.False(t, ok, "missing files are I/O errors, not form errors")
}
