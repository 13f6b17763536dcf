// Package validate checks form input before it is sent to the API.
package validate

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Login is the login form.
type Login struct {
	Email    string `label:"Email" validate:"required,email"`
	Password string `label:"Password" validate:"required"`
}

// Register is the sign-up form.
type Register struct {
	Name            string `label:"Name" validate:"required,min=2"`
	Email           string `label:"Email" validate:"required,email"`
	Password        string `label:"Password" validate:"required,min=6"`
	PasswordConfirm string `label:"Password confirmation" validate:"eqfield=Password"`
}

// Board is the create/update board form. Empty optional fields are skipped.
type Board struct {
	Title     string `label:"Title" validate:"required,max=200"`
	Status    string `label:"Status" validate:"omitempty,oneof=planning active completed"`
	Budget    string `label:"Budget" validate:"omitempty,amount_gte0"`
	Currency  string `label:"Currency" validate:"omitempty,len=3,alpha"`
	StartDate string `label:"Start date" validate:"omitempty,isodate"`
	EndDate   string `label:"End date" validate:"omitempty,isodate"`
}

// Card is the create/update card form.
type Card struct {
	Title        string `label:"Title" validate:"required,max=200"`
	Budget       string `label:"Budget" validate:"omitempty,amount_gte0"`
	PeopleNumber int    `label:"People" validate:"gte=1"`
	DueDate      string `label:"Due date" validate:"omitempty,isodate"`
	Category     string `label:"Category" validate:"omitempty,oneof=flight hotel food activity romantic family"`
}

// Expense is the create/update expense form.
type Expense struct {
	Title    string `label:"Title" validate:"required,max=200"`
	Amount   string `label:"Amount" validate:"required,amount_gt0"`
	Category string `label:"Category" validate:"omitempty,max=50"`
	Date     string `label:"Date" validate:"omitempty,isodate"`
}

// Location is the map pin form.
type Location struct {
	Name      string `label:"Name" validate:"required,max=200"`
	Latitude  string `label:"Latitude" validate:"required,latitude"`
	Longitude string `label:"Longitude" validate:"required,longitude"`
}

// FieldError is one failing field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is returned when a form fails validation. Each failing field
// contributes one message.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Validator validates forms.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	_ = v.RegisterValidation("amount_gte0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && !d.IsNegative()
	})
	_ = v.RegisterValidation("amount_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && d.IsPositive()
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})
	v.RegisterStructValidation(boardDates, Board{})
	return &Validator{v: v}
}

// Struct validates a form, returning Errors on failure.
func (val *Validator) Struct(form any) error {
	err := val.v.Struct(form)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(Errors, 0, len(verrs))
	seen := map[string]bool{}
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func boardDates(sl validator.StructLevel) {
	b := sl.Current().Interface().(Board)
	start, err1 := time.Parse(time.DateOnly, b.StartDate)
	end, err2 := time.Parse(time.DateOnly, b.EndDate)
	if err1 == nil && err2 == nil && end.Before(start) {
		sl.ReportError(b.EndDate, "End date", "EndDate", "after_start", "")
	}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please enter a valid email address"
	case "eqfield":
		return "Passwords do not match"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len", "alpha":
		return field + " must be a 3-letter code"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "amount_gte0":
		return field + " must be a non-negative amount"
	case "amount_gt0":
		return field + " must be a positive amount"
	case "latitude", "longitude":
		return field + " must be a valid coordinate"
	case "isodate":
		return field + " must be a date (YYYY-MM-DD)"
	case "after_start":
		return "End date cannot be before start date"
	default:
		return field + " is invalid"
	}
}
