package services

import (
	"errors"
	"strings"
)

// ErrorDetails summarizes a stage error for logging and user-facing messages.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured failure context from an error chain. Errors not
// built through Wrap yield a transient classification with the raw message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: kindOf(nil)}
	}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		return ErrorDetails{
			Kind:      kindOf(wrapped.Marker),
			Stage:     wrapped.Stage,
			Operation: wrapped.Operation,
			Message:   buildDetail(wrapped.Stage, wrapped.Operation, wrapped.Message),
			Cause:     wrapped.Cause,
		}
	}
	return ErrorDetails{
		Kind:    kindOf(classify(err)),
		Message: strings.TrimSpace(err.Error()),
		Cause:   err,
	}
}

func classify(err error) error {
	for _, marker := range []error{
		ErrValidation,
		ErrConfiguration,
		ErrNotFound,
		ErrTimeout,
		ErrExternalService,
		ErrTransient,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return ErrTransient
}

func kindOf(marker error) string {
	switch marker {
	case ErrValidation:
		return "validation"
	case ErrConfiguration:
		return "configuration"
	case ErrNotFound:
		return "not_found"
	case ErrTimeout:
		return "timeout"
	case ErrExternalService:
		return "external_service"
	default:
		return "transient"
	}
}
