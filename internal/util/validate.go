package util

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate service 层共享的校验器，字段名取 json tag
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}
