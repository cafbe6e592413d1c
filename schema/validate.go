package schema

import (
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// descriptorValidate is shared by all descriptors; validator.Validate is safe for concurrent use.
var descriptorValidate *validator.Validate

func init() {
	descriptorValidate = validator.New()

	// report json names ("mol_weight") instead of Go field names
	descriptorValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = descriptorValidate.RegisterValidation("finite", validateFinite)
	_ = descriptorValidate.RegisterValidation("aca_class", validateACAClass)
}

func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateACAClass(fl validator.FieldLevel) bool {
	return IsKnownClass(fl.Field().String())
}

// IsKnownClass reports whether class is one of ACAClasses.
func IsKnownClass(class string) bool {
	return slices.Contains(ACAClasses, class)
}

// Validate checks that every numeric field is finite. With strict, the
// class must also be one of ACAClasses; otherwise unknown classes are
// accepted and encoded as all zeros downstream.
// Ranges are not checked: negative values are passed through as-is.
func (d DrugDescriptor) Validate(strict bool) error {
	if err := descriptorValidate.Struct(d); err != nil {
		return toValidationError(err)
	}
	if strict {
		if err := descriptorValidate.Var(d.ACAClass, "required,aca_class"); err != nil {
			return errors.NewValidationError(ColACAClass, "must be one of "+strings.Join(ACAClasses, ", "), d.ACAClass)
		}
	}
	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "descriptor validation")
	}
	fe := verrs[0]
	reason := "failed " + fe.Tag()
	if fe.Tag() == "finite" {
		reason = "must be a finite number"
	}
	return errors.NewValidationError(fe.Field(), reason, fe.Value())
}
