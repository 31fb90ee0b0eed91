package backend

import (
	"github.com/pkg/errors"
)

// ErrEmptyContent is the warning reported when a scrape succeeded but
// returned nothing that can be rendered.
var ErrEmptyContent = errors.New("No content found on the page")

// ValidationError rejects a request before anything is dispatched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// CollaboratorError carries the failure reported by the scraping engine.
type CollaboratorError struct {
	Message string
}

func (e *CollaboratorError) Error() string {
	return e.Message
}

func IsCollaborator(err error) bool {
	_, ok := errors.Cause(err).(*CollaboratorError)
	return ok
}
