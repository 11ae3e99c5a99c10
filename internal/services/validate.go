package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/go-playground/validator/v10"
)

const reservedUsername = "me"

var (
	// Same character class as the original \w-based pattern, Unicode aware.
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("pastyear", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year >= 0 && year <= int64(time.Now().Year())
	})

	return v
}

// ValidUsername returns "" for an acceptable username, otherwise the reason
// it is rejected.
func ValidUsername(username string) string {
	if strings.EqualFold(username, reservedUsername) {
		return `Username "me" is reserved.`
	}
	if !usernamePattern.MatchString(username) {
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return ""
}

// validateStruct runs the struct tags of req and converts failures into a
// ValidationError keyed by JSON field name.
func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if numeric {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		if numeric {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
		return "This field may not be blank."
	case "username":
		if msg := ValidUsername(fmt.Sprint(fe.Value())); msg != "" {
			return msg
		}
		return "Enter a valid username."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "role":
		return fmt.Sprintf("%q is not a valid role.", fmt.Sprint(fe.Value()))
	case "pastyear":
		return "Year cannot be in the future."
	}
	return "Invalid value."
}
