package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	Page int    `json:"page" validate:"required,min=1"`
	Sort string `json:"sort" validate:"omitempty,oneof=relevance price-asc price-desc"`
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Feature: catalog-filters, Property 4: Page numbers below one are rejected
func TestProperty_PageRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("page must be at least one", prop.ForAll(
		func(page int) bool {
			body, _ := json.Marshal(map[string]any{"page": page})

			var req pageRequest
			err := DecodeAndValidate(httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(body)), &req)

			if page >= 1 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-50, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDecodeAndValidate_FieldNamesUseJSONTags(t *testing.T) {
	var req pageRequest
	err := DecodeAndValidate(postJSON(`{"page":0,"sort":"colour"}`), &req)
	require.Error(t, err)

	fields := FormatValidationErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "page", fields[0].Field)
	assert.Equal(t, "sort", fields[1].Field)
	assert.Contains(t, fields[1].Message, "price-asc")
}

func TestDecodeAndValidate_BadBodies(t *testing.T) {
	for name, body := range map[string]string{
		"empty":         ``,
		"malformed":     `{"page":`,
		"unknown field": `{"page":1,"colour":"red"}`,
	} {
		t.Run(name, func(t *testing.T) {
			var req pageRequest
			err := DecodeAndValidate(postJSON(body), &req)
			require.Error(t, err)
			assert.Empty(t, FormatValidationErrors(err))

			w := httptest.NewRecorder()
			RespondWithRequestError(w, err)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_body")
		})
	}
}

func TestRespondWithRequestError_Validation(t *testing.T) {
	var req pageRequest
	err := DecodeAndValidate(postJSON(`{"page":-1}`), &req)

	w := httptest.NewRecorder()
	RespondWithRequestError(w, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}
