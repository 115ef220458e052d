package model

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the custom domain rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for blank tag names.
	_ = v.RegisterValidation("subject", validateSubject)
	_ = v.RegisterValidation("grade", validateGrade)
	return v
}

func validateSubject(fl validator.FieldLevel) bool {
	return Subject(fl.Field().String()).Valid()
}

// validateGrade accepts school grades 1 through 13.
func validateGrade(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Field().String())
	if err != nil {
		return false
	}
	return n >= 1 && n <= 13
}
