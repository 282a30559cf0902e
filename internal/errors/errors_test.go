package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedErrors(t *testing.T) {
	err := fmt.Errorf("update category: %w", NewForbiddenError("not allowed"))

	assert.Equal(t, KindForbidden, KindOf(err))
	assert.True(t, IsForbiddenError(err))
	assert.False(t, IsNotFoundError(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewNotFoundError("missing"), http.StatusNotFound},
		{NewConflictError("taken"), http.StatusConflict},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{&ValidationErrors{Errors: []error{NewValidationError("row")}}, http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestValidationErrors_Messages(t *testing.T) {
	ve := &ValidationErrors{}
	ve.Add(NewIndexedValidationError(1, "Label must not be empty"))
	ve.Add(NewIndexedValidationError(3, "Category not found"))

	assert.Equal(t, []string{
		"Validation error at transaction 1: Label must not be empty",
		"Validation error at transaction 3: Category not found",
	}, ve.Messages())
	assert.True(t, IsValidationErrors(fmt.Errorf("bulk: %w", ve)))
}
