package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chis/kbcatalog/internal/storage"
)

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestParseBoolParam(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{"empty value is false", "", false},
		{"true value", "live=true", true},
		{"false value", "live=false", false},
		{"TRUE is false (case sensitive)", "live=TRUE", false},
		{"1 is false", "live=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/?"+tt.query, nil)
			assert.Equal(t, tt.expected, parseBoolParam(req, "live"))
		})
	}
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value  string
		wantID int64
		wantOK bool
	}{
		{"42", 42, true},
		{"1", 1, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("id=%q", tt.value), func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.SetPathValue("id", tt.value)
			w := httptest.NewRecorder()

			id, ok := parseIDParam(w, req, "id")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusNotFound, w.Code)
				assert.Contains(t, w.Body.String(), "Not found")
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	t.Run("empty value returns false and writes error", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.False(t, validateRequired(w, "actor", ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "actor is required")
	})

	t.Run("whitespace is empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.False(t, validateRequired(w, "state", "   "))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-empty value returns true", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.True(t, validateRequired(w, "state", "approved"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestDecodeJSONRequest(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"state":"approved","actor":"dana"}`))
		w := httptest.NewRecorder()

		var body TransitionRequest
		require.True(t, decodeJSONRequest(w, req, &body))
		assert.Equal(t, TransitionRequest{State: "approved", Actor: "dana"}, body)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"state":`))
		w := httptest.NewRecorder()

		var body TransitionRequest
		assert.False(t, decodeJSONRequest(w, req, &body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"state":"` + strings.Repeat("a", maxRequestBody) + `"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(big))
		w := httptest.NewRecorder()

		var body TransitionRequest
		assert.False(t, decodeJSONRequest(w, req, &body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// ============================================================================
// Response Mapping Tests
// ============================================================================

func TestRespondStorageError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"script not found", storage.ErrScriptNotFound, http.StatusNotFound},
		{"wrapped category not found", fmt.Errorf("seed: %w", storage.ErrCategoryNotFound), http.StatusNotFound},
		{"transition refused", &storage.TransitionError{From: "draft", To: "published"}, http.StatusConflict},
		{"invalid state", fmt.Errorf("%w: %q", storage.ErrInvalidKCSState, "bogus"), http.StatusBadRequest},
		{"invalid role", storage.ErrInvalidRole, http.StatusBadRequest},
		{"invalid confidence", storage.ErrInvalidConfidence, http.StatusBadRequest},
		{"store unavailable", storage.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"anything else", errors.New("disk I/O error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondStorageError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), `"success": false`)
		})
	}
}

func TestRespondNotFoundUsesStandardMessage(t *testing.T) {
	w := httptest.NewRecorder()
	RespondNotFound(w)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error": "Not found"`)
}

func TestRespondJSONLDHasNoEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSONLD(w, map[string]string{"@id": "urn:kbcatalog:catalog"})

	assert.Equal(t, "application/ld+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"@id": "urn:kbcatalog:catalog"`)
	assert.NotContains(t, w.Body.String(), "success")
}
