package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// DecodeEnvelope reads the response body as the API envelope
func DecodeEnvelope(t *testing.T, resp *http.Response) Envelope {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env), "failed to unmarshal response: %s", string(body))
	return env
}

// DecodeData asserts a successful envelope and decodes its data into v
func DecodeData(t *testing.T, resp *http.Response, v any) Envelope {
	t.Helper()

	env := DecodeEnvelope(t, resp)
	require.True(t, env.Success, "expected success, got message %q", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, v), "failed to unmarshal data: %s", string(env.Data))
	return env
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	env := DecodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, expectedMessage, "error message mismatch")
}
