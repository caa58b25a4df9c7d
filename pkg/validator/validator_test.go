package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"required,min=10,max=2000"`
}

func TestValidate_OK(t *testing.T) {
	err := Validate(submission{Rating: 5, Content: "long enough content"})
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(submission{Rating: 6, Content: "short"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Contains(t, fields, "Rating")
	assert.Contains(t, fields, "Content")
	assert.Equal(t, "must be at most 5", fields["Rating"])
	assert.Equal(t, "must be at least 10", fields["Content"])
}

func TestValidate_RequiredMessage(t *testing.T) {
	err := Validate(submission{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["Rating"])
	assert.Contains(t, valErr.Error(), "field 'Rating'")
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"rating":4,"content":"a very helpful review"}`))

	var dst submission
	require.NoError(t, DecodeAndValidate(r, &dst))
	assert.Equal(t, 4, dst.Rating)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{`))

	var dst submission
	err := DecodeAndValidate(r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
