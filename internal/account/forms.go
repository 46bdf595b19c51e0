// Package account validates the sign-in, password and profile picture
// forms before anything is sent to the backend.
package account

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const (
	MsgPasswordFieldsRequired = "All password fields are required."
	MsgPasswordMismatch       = "New password and confirmation do not match."
	MsgImageFormat            = "Only JPG, JPEG, PNG, and HEIC formats are allowed."
	MsgCodeRequired           = "Assistant code is required."
	MsgPasswordRequired       = "Password is required."

	// MaxImageBytes matches the backend's upload limit.
	MaxImageBytes = 5 << 20
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/heic"}

// ValidationError is a user-facing form error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a form error, returning it.
func IsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

var validate = validator.New()

// SignInForm is the assistant code and password pair.
type SignInForm struct {
	AssistantCode string `validate:"required"`
	Password      string `validate:"required"`
}

// NormalizeCode upper-cases and trims an assistant code as it is typed.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate normalizes the code in place and checks both fields.
func (f *SignInForm) Validate() error {
	f.AssistantCode = NormalizeCode(f.AssistantCode)
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	field := firstFailure(err)
	if field == nil {
		return fmt.Errorf("account: validate sign-in form: %w", err)
	}
	switch field.Field() {
	case "AssistantCode":
		return &ValidationError{Field: "AssistantCode", Message: MsgCodeRequired}
	default:
		return &ValidationError{Field: field.Field(), Message: MsgPasswordRequired}
	}
}

// PasswordForm is the change-password form.
type PasswordForm struct {
	Current string `validate:"required"`
	New     string `validate:"required"`
	Confirm string `validate:"required,eqfield=New"`
}

// Validate checks the form in the order the backend does: presence first,
// then confirmation.
func (f PasswordForm) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("account: validate password form: %w", err)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Field: fe.Field(), Message: MsgPasswordFieldsRequired}
		}
	}
	return &ValidationError{Field: "Confirm", Message: MsgPasswordMismatch}
}

// ImageFile is a picture that passed CheckImage.
type ImageFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// CheckImage sniffs the file at path and accepts JPEG, PNG and HEIC only.
// The extension is ignored.
func CheckImage(path string) (ImageFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ImageFile{}, &ValidationError{Field: "Image", Message: "Choose an image file."}
	}
	info, err := os.Stat(path)
	if err != nil {
		return ImageFile{}, fmt.Errorf("account: stat image: %w", err)
	}
	if info.IsDir() {
		return ImageFile{}, &ValidationError{Field: "Image", Message: fmt.Sprintf("%s is a directory.", filepath.Base(path))}
	}
	if info.Size() > MaxImageBytes {
		return ImageFile{}, &ValidationError{Field: "Image", Message: "Image must be 5 MB or smaller."}
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return ImageFile{}, fmt.Errorf("account: detect image type: %w", err)
	}
	for _, allowed := range allowedImageTypes {
		if mtype.Is(allowed) {
			return ImageFile{
				Path:        path,
				Filename:    filepath.Base(path),
				ContentType: allowed,
				Size:        info.Size(),
			}, nil
		}
	}
	return ImageFile{}, &ValidationError{Field: "Image", Message: MsgImageFormat}
}

func firstFailure(err error) validator.FieldError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0]
	}
	return nil
}
