package api

import (
	"errors"
	"net/http"

	"github.com/chis/kbcatalog/internal/jsonld"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/output"
	"github.com/chis/kbcatalog/internal/storage"
)

// RespondError writes an error response with the specified HTTP status code.
// This is the unified error response function - prefer using this over specific status functions.
func RespondError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	output.WriteJSONError(w, err)
}

// RespondBadRequest writes a 400 Bad Request error response
func RespondBadRequest(w http.ResponseWriter, err error) {
	RespondError(w, http.StatusBadRequest, err)
}

// RespondNotFound writes a 404 Not Found response with the standard message
func RespondNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	output.WriteJSONMessage(w, output.NotFoundMessage)
}

// RespondConflict writes a 409 Conflict error response
func RespondConflict(w http.ResponseWriter, err error) {
	RespondError(w, http.StatusConflict, err)
}

// RespondInternalError writes a 500 Internal Server Error response
func RespondInternalError(w http.ResponseWriter, err error) {
	RespondError(w, http.StatusInternalServerError, err)
}

// RespondSuccess writes a 200 OK response with data
func RespondSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	output.WriteJSONData(w, data)
}

// RespondCreated writes a 201 Created response with data
func RespondCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	output.WriteJSONData(w, data)
}

// RespondNoContent writes a 204 No Content response
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondJSONLD writes a linked-data document without the response envelope.
func RespondJSONLD(w http.ResponseWriter, doc any) {
	w.Header().Set("Content-Type", jsonld.ContentType)
	if err := output.WriteIndented(w, doc); err != nil {
		logging.Error("Failed to write JSON-LD: %v", err)
	}
}

// RespondStorageError maps storage errors to appropriate HTTP status codes.
func RespondStorageError(w http.ResponseWriter, err error) {
	var transitionErr *storage.TransitionError
	switch {
	case errors.Is(err, storage.ErrScriptNotFound), errors.Is(err, storage.ErrCategoryNotFound):
		RespondNotFound(w)
	case errors.As(err, &transitionErr):
		RespondConflict(w, err)
	case errors.Is(err, storage.ErrInvalidKCSState),
		errors.Is(err, storage.ErrInvalidRole),
		errors.Is(err, storage.ErrInvalidConfidence):
		RespondBadRequest(w, err)
	case errors.Is(err, storage.ErrStoreUnavailable):
		RespondError(w, http.StatusServiceUnavailable, err)
	default:
		logging.Error("Storage error: %v", err)
		RespondInternalError(w, err)
	}
}
