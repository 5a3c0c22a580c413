package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// maxRequestBody caps JSON request bodies
const maxRequestBody = 64 << 10

// parseBoolParam parses a boolean query parameter
func parseBoolParam(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}

// parseIDParam parses a positive integer path value. Malformed ids are
// reported as not found since no script can carry them.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		RespondNotFound(w)
		return 0, false
	}
	return id, true
}

// validateRequired checks that a required parameter is not empty.
// Returns true if valid, false if empty (and writes error response).
func validateRequired(w http.ResponseWriter, name, value string) bool {
	if strings.TrimSpace(value) == "" {
		RespondBadRequest(w, fmt.Errorf("%s is required", name))
		return false
	}
	return true
}
