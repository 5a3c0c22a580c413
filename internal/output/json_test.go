package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse(map[string]string{"key": "value"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Error)
	assert.Equal(t, Version, resp.Version)

	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC3339")
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(errors.New("test error"))

	assert.False(t, resp.Success)
	assert.Equal(t, "test error", resp.Error)
	assert.Nil(t, resp.Data)
	assert.Equal(t, Version, resp.Version)
}

func TestErrorMessageResponse(t *testing.T) {
	resp := ErrorMessageResponse(NotFoundMessage)

	assert.False(t, resp.Success)
	assert.Equal(t, "Not found", resp.Error)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, SuccessResponse(map[string]int{"count": 42})))

	var parsed Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.True(t, parsed.Success)
	assert.Contains(t, buf.String(), "\n", "output should be indented")
}

func TestWriteJSONData(t *testing.T) {
	var buf bytes.Buffer
	data := struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{"Set-GlobalAdmin", 5}

	require.NoError(t, WriteJSONData(&buf, data))

	var parsed Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.True(t, parsed.Success)

	dataMap, ok := parsed.Data.(map[string]any)
	require.True(t, ok, "data should be an object")
	assert.Equal(t, "Set-GlobalAdmin", dataMap["name"])
	assert.EqualValues(t, 5, dataMap["count"])
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONError(&buf, errors.New("something went wrong")))

	var parsed Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.False(t, parsed.Success)
	assert.Equal(t, "something went wrong", parsed.Error)
}

func TestWriteJSONMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONMessage(&buf, NotFoundMessage))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, false, parsed["success"])
	assert.Equal(t, "Not found", parsed["error"])
	assert.NotContains(t, parsed, "data")
}

func TestWriteIndentedHasNoEnvelope(t *testing.T) {
	var buf bytes.Buffer
	doc := map[string]any{"@id": "urn:kbcatalog:catalog"}
	require.NoError(t, WriteIndented(&buf, doc))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "urn:kbcatalog:catalog", parsed["@id"])
	assert.NotContains(t, parsed, "success")
}

func TestWriteIndentedUnsupportedValue(t *testing.T) {
	var buf bytes.Buffer
	err := WriteIndented(&buf, map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestResponseStruct(t *testing.T) {
	resp := Response{
		Success:   true,
		Data:      "test data",
		Timestamp: "2024-01-01T00:00:00Z",
		Version:   "1.0.0",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, true, parsed["success"])
	assert.Equal(t, "test data", parsed["data"])
	assert.Equal(t, "2024-01-01T00:00:00Z", parsed["timestamp"])
	assert.Equal(t, "1.0.0", parsed["version"])
}

func TestVersionDefault(t *testing.T) {
	assert.NotEmpty(t, Version)
}

func TestResponseOmitEmpty(t *testing.T) {
	failure, _ := json.Marshal(Response{Success: false, Error: "error"})
	assert.False(t, strings.Contains(string(failure), `"data"`), "data omitted when nil")

	success, _ := json.Marshal(Response{Success: true, Data: "test"})
	assert.False(t, strings.Contains(string(success), `"error"`), "error omitted when empty")
}
