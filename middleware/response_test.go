/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-ratelimit/log/logtest"
)

func TestRespondError(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	respRec := httptest.NewRecorder()
	RespondError(respRec, http.StatusTooManyRequests, NewTooManyRequestsError("MyService"), logRecorder)

	require.Equal(t, http.StatusTooManyRequests, respRec.Code)
	require.Equal(t, ContentTypeAppJSON, respRec.Header().Get("Content-Type"))
	require.JSONEq(t,
		`{"error": {"domain": "MyService", "code": "tooManyRequests", "message": "Too many requests."}}`,
		respRec.Body.String())
}

func TestRespondInternalError(t *testing.T) {
	respRec := httptest.NewRecorder()
	RespondInternalError(respRec, "MyService", nil)

	require.Equal(t, http.StatusInternalServerError, respRec.Code)
	require.JSONEq(t,
		`{"error": {"domain": "MyService", "code": "internalError", "message": "Internal error."}}`,
		respRec.Body.String())
}

func TestJSONMarshalNoHTMLEscaping(t *testing.T) {
	b, err := jsonMarshal(NewError("MyService", "badRequest", "value must match <pattern>"))
	require.NoError(t, err)
	require.Contains(t, string(b), "<pattern>")
}
