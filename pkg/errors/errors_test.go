package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindPermissionDenied.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
	assert.Equal(t, "validation_error", KindValidation.String())
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := NotFound("alert %d not found", 7)
	assert.Equal(t, "alert 7 not found", base.Error())
	assert.Equal(t, http.StatusNotFound, base.Code)

	wrapped := Wrap(base, "mark read")
	assert.True(t, IsKind(wrapped, KindNotFound))

	std := fmt.Errorf("handler: %w", wrapped)
	assert.Equal(t, KindNotFound, KindOf(std))
	assert.Equal(t, http.StatusNotFound, GetCode(std))
	assert.Same(t, base, Cause(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.False(t, IsKind(nil, KindNotFound))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithContextCopies(t *testing.T) {
	e := Validation("bad units")
	e2 := e.WithContext("field", "preferred_units")
	assert.Empty(t, e.Context)
	assert.Equal(t, []KeyValue{{Key: "field", Value: "preferred_units"}}, e2.Context)
	assert.Equal(t, KindValidation, e2.Kind)
}
