package lifecycle

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"civicresolve/models"
)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
			return pincodePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.IssueCategory(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

func check(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// ValidateDraft checks a new issue locally: description of at least 10
// characters, a 6 digit pincode, coordinates present and in range.
func ValidateDraft(d models.IssueDraft) error {
	return check(d)
}

// ValidateEdit applies the draft rules to an edit.
func ValidateEdit(e models.IssueEdit) error {
	return check(e)
}

// ValidateContractor checks a contractor profile before registration.
func ValidateContractor(c models.Contractor) error {
	return check(c)
}

// ValidateFeedback checks the free-text part of a feedback record. The
// rating range is a lifecycle rule and is checked by CheckFeedback.
func ValidateFeedback(f models.Feedback) error {
	return check(f)
}
