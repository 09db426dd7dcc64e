package validation

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"

    "github.com/labte-ums/lorawan-dashboard/internal/models"
)

// Validator validates request structs using their validate tags
type Validator struct {
    validate *validator.Validate
}

// NewValidator creates a new validator. Field names in errors come from the
// json tag, then the form tag, then the Go field name.
func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())

    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        for _, tag := range []string{"json", "form"} {
            name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
            if name == "-" {
                return ""
            }
            if name != "" {
                return name
            }
        }
        return f.Name
    })

    v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
        _, err := models.ParseRole(fl.Field().String())
        return err == nil
    })

    return &Validator{validate: v}
}

// Validate validates a struct. The returned error names every failed field.
func (v *Validator) Validate(s interface{}) error {
    err := v.validate.Struct(s)
    if err == nil {
        return nil
    }

    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err
    }

    msgs := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        msgs = append(msgs, describe(fe))
    }
    return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return fmt.Sprintf("%s is required", fe.Field())
    case "oneof":
        return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
    case "min":
        return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
    case "max":
        return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
    case "role":
        return fmt.Sprintf("%s must be user or admin", fe.Field())
    }
    return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
