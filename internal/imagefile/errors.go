package imagefile

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImage is returned when the declared media type is not an image type.
	ErrNotImage = errors.New("please select an image file")

	// ErrTooLarge is returned when the file exceeds MaxSize.
	ErrTooLarge = errors.New("file is too large, maximum size is 16MB")
)

// ValidationError describes a rejected candidate file.
type ValidationError struct {
	Name      string
	MediaType string
	Size      int64
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a selection rejection.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
