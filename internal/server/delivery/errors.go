package delivery

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/webmail/internal/common"
)

var errMalformedDataURL = errors.New("malformed data url")

type attachmentError struct {
	filename string
	err      error
}

func (e *attachmentError) Error() string {
	return fmt.Sprintf("attachment %q: %v", e.filename, e.err)
}

func (e *attachmentError) Unwrap() []error { return []error{common.ErrValidation, e.err} }
