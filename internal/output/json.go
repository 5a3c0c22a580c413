package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Version is the kbcatalog version, set at build time with
// -ldflags "-X github.com/chis/kbcatalog/internal/output.Version=..."
var Version = "dev"

// NotFoundMessage is the error text of every not-found response.
const NotFoundMessage = "Not found"

// Response is a standardized JSON wrapper for all command and API outputs
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"` // RFC3339 format
	Version   string      `json:"version"`
}

// SuccessResponse creates a successful response with data
func SuccessResponse(data interface{}) Response {
	return Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	}
}

// ErrorResponse creates an error response
func ErrorResponse(err error) Response {
	return ErrorMessageResponse(err.Error())
}

// ErrorMessageResponse creates an error response from a string message
func ErrorMessageResponse(message string) Response {
	return Response{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	}
}

// WriteJSON writes a Response as indented JSON to the given writer
func WriteJSON(w io.Writer, response Response) error {
	return WriteIndented(w, response)
}

// WriteIndented writes any value as indented JSON. Used for bodies that
// are not wrapped in a Response, such as JSON-LD documents.
func WriteIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteJSONData is a convenience function that wraps data in a success response and writes it
func WriteJSONData(w io.Writer, data interface{}) error {
	return WriteJSON(w, SuccessResponse(data))
}

// WriteJSONError is a convenience function that wraps an error in a response and writes it
func WriteJSONError(w io.Writer, err error) error {
	return WriteJSON(w, ErrorResponse(err))
}

// WriteJSONMessage wraps an error message in a response and writes it
func WriteJSONMessage(w io.Writer, message string) error {
	return WriteJSON(w, ErrorMessageResponse(message))
}
