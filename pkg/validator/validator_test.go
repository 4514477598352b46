package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,min=10,max=1000"`
}

type contactInput struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=8,strongpassword"`
	Internal string `json:"-" validate:"omitempty,uuid"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(reviewInput{Rating: 5, Comment: "Lovely balayage, will come back"}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewInput{}))
	assert.Equal(t, "is required", fields["rating"])
	assert.Equal(t, "is required", fields["comment"])
}

func TestValidate_RatingOutOfRange(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewInput{Rating: 6, Comment: "far too long to be short"}))
	assert.Equal(t, "must be less than or equal to 5", fields["rating"])
}

func TestValidate_StringLengthMessages(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewInput{Rating: 3, Comment: "short"}))
	assert.Equal(t, "must be at least 10 characters", fields["comment"])
}

func TestValidate_Phone(t *testing.T) {
	base := contactInput{Name: "Lan", Password: "Secret123"}

	base.Phone = "+84 (90) 123-4567"
	assert.NoError(t, Validate(base))

	base.Phone = "call me"
	fields := fieldsOf(t, Validate(base))
	assert.Contains(t, fields["phone"], "only digits")
}

func TestValidate_StrongPassword(t *testing.T) {
	in := contactInput{Name: "Lan", Phone: "0901234567", Password: "alllowercase1"}
	fields := fieldsOf(t, Validate(in))
	assert.Contains(t, fields["password"], "upper case")
}

func TestValidate_OptionalEmail(t *testing.T) {
	in := contactInput{Name: "Lan", Phone: "0901234567", Password: "Secret123", Email: "nope"}
	fields := fieldsOf(t, Validate(in))
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Abcdefg1"))
	assert.False(t, IsStrongPassword("ABCDEFG1"))
	assert.False(t, IsStrongPassword("abcdefg1"))
	assert.False(t, IsStrongPassword("Abcdefgh"))
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(reviewInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'rating' is required")
}
