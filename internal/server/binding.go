package server

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
)

var registerValidatorsOnce sync.Once

// registerValidators teaches gin's validator the request tags used by the
// domain request types and reports fields by their json names.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("rule_condition", func(fl validator.FieldLevel) bool {
			return pricingdomain.RuleCondition(strings.TrimSpace(fl.Field().String())).Valid()
		})
	})
}

func jsonFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}
