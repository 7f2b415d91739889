/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/acronis/go-ratelimit/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// Error codes that are used in response bodies.
// We are using "var" here because some services may want to use different error codes.
var (
	ErrCodeInternal        = "internalError"
	ErrCodeTooManyRequests = "tooManyRequests"
)

// Error messages that are used in response bodies.
var (
	ErrMessageInternal        = "Internal error."
	ErrMessageTooManyRequests = "Too many requests."
)

// Error represents an error details.
type Error struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// NewError creates a new Error with specified params.
func NewError(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewInternalError creates a new internal error with specified domain.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, ErrMessageInternal)
}

// NewTooManyRequestsError creates a new "too many requests" error with specified domain.
func NewTooManyRequestsError(domain string) *Error {
	return NewError(domain, ErrCodeTooManyRequests, ErrMessageTooManyRequests)
}

// ErrorResponseData is used for answer on requests with error.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

// Does JSON marshaling with disabled HTML escaping
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

// RespondError sets HTTP status code in response and writes wrapped error in body in JSON format.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}
	respJSON, marshalErr := jsonMarshal(ErrorResponseData{err})
	if marshalErr != nil {
		if logger != nil {
			logger.Error("error while marshaling json for response body", log.Error(marshalErr))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(httpStatusCode)
	if _, writeErr := rw.Write(respJSON); writeErr != nil {
		if logger != nil {
			logger.Error("error while writing response body", log.Error(writeErr))
		}
	}
}

// RespondInternalError sends response with 500 HTTP status code and internal error in body in JSON format.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}
