package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a ServerError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *ServerError {
	if err == nil {
		return nil
	}

	// If it's already a ServerError, preserve its properties but update the message
	var se *ServerError
	if errors.As(err, &se) {
		return &ServerError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       se,
			Context:     se.Context,
			Component:   se.Component,
			Path:        se.Path,
			Recoverable: se.Recoverable,
		}
	}

	return &ServerError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation,
	}
}

// WrapNetwork wraps a per-connection socket failure. These are always
// recoverable from the acceptor's point of view.
func WrapNetwork(err error, message string) *ServerError {
	se := Wrap(err, ErrorTypeNetwork, ErrCodeConnection, message)
	if se != nil {
		se.Recoverable = true
	}
	return se
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *ServerError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, message string) *ServerError {
	se := Wrap(err, ErrorTypeConfig, ErrCodeConfigInvalid, message)
	if se != nil {
		se.Recoverable = false
	}
	return se
}

// Fields flattens err into key/value pairs for the structured logger.
func Fields(err error) []interface{} {
	var se *ServerError
	if !errors.As(err, &se) {
		return nil
	}
	fields := []interface{}{"code", se.Code, "type", string(se.Type)}
	if se.Path != "" {
		fields = append(fields, "path", se.Path)
	}
	for k, v := range se.Context {
		fields = append(fields, k, v)
	}
	return fields
}
