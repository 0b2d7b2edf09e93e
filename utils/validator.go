package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the tag-level validation rules and flattens the result
// into one readable error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var problems []string
	for _, fieldErr := range err.(validator.ValidationErrors) {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "min":
			problems = append(problems, field+" must be at least "+fieldErr.Param())
		case "max":
			problems = append(problems, field+" must be at most "+fieldErr.Param())
		case "oneof":
			problems = append(problems, field+" must be one of: "+fieldErr.Param())
		default:
			problems = append(problems, field+" is invalid")
		}
	}

	return fmt.Errorf("%s", strings.Join(problems, ", "))
}
