// Package validation checks inbound payloads before they reach the storage.
// Every function is pure: it returns a normalized copy of its input or the first
// failing field as an *apperror.Error with a 400 status.
package validation

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/model"
)

type (
	// SignUpInput is the sign-up payload.
	SignUpInput struct {
		Name            string `json:"name"            validate:"min=1,max=100"`
		Email           string `json:"email"           validate:"email"`
		Password        string `json:"password"        validate:"min=6"`
		ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
		Role            string `json:"role"            validate:"oneof=0 1"`
	}

	// SignInInput is the sign-in payload.
	SignInInput struct {
		Email    string `json:"email"    validate:"email"`
		Password string `json:"password" validate:"required"`
	}

	// ItemInput is the item creation and update payload.
	ItemInput struct {
		Title       string `json:"title"       validate:"min=3,max=100"`
		Description string `json:"description" validate:"min=1,max=500"`
		Status      string `json:"status"      validate:"oneof=active inactive completed"`
	}
)

var messages = map[string]string{
	"name.min":                "Name is required",
	"name.max":                "Name cannot exceed 100 characters",
	"email.email":             "Invalid email address",
	"password.min":            "Password must be at least 6 characters",
	"password.required":       "Password is required",
	"confirmPassword.eqfield": "Passwords do not match",
	"role.oneof":              "Invalid role",
	"title.min":               "Title must be at least 3 characters",
	"title.max":               "Title cannot exceed 100 characters",
	"description.min":         "Description is required",
	"description.max":         "Description cannot exceed 500 characters",
	"status.oneof":            "Invalid status",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SignUp validates and normalizes a sign-up payload.
func SignUp(in SignUpInput) (SignUpInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = model.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = model.RoleUser
	}

	return in, check(in)
}

// SignIn validates and normalizes a sign-in payload.
func SignIn(in SignInInput) (SignInInput, error) {
	in.Email = model.NormalizeEmail(in.Email)
	return in, check(in)
}

// Item validates and normalizes an item payload.
func Item(in ItemInput) (ItemInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = model.StatusActive
	}

	return in, check(in)
}

// check returns the first validation failure.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperror.BadRequest("Invalid request payload")
	}

	verr := verrs[0]
	message, ok := messages[verr.Field()+"."+verr.Tag()]
	if !ok {
		message = "Invalid " + verr.Field()
	}
	return apperror.NewWithField(http.StatusBadRequest, verr.Field(), message)
}
