package chatter

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

var validate *validator.Validate
var uniTrans *ut.UniversalTranslator

func init() {

	validate = validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uniTrans = ut.New(en, en)
	enTrans, _ := uniTrans.GetTranslator("en")

	// lowercase first letter of the field
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ","); name != "" {
			return name
		}
		return strings.ToLower(field.Name)
	})

	registerTranslation(enTrans, "required", "{0} is a required field")
	registerTranslation(enTrans, "required_with", "{0} is required when {1} is set")
	registerTranslation(enTrans, "oneof", "{0} must be one of [{1}]")
	registerTranslation(enTrans, "min", "{0} must contain at least {1} item(s)")
	registerTranslation(enTrans, "gte", "{0} must be {1} or greater")
	registerTranslation(enTrans, "url", "{0} must be a valid URL")
	registerTranslation(enTrans, "hostname_port", "{0} must be a valid host:port address")

	validate.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		port, ok := fl.Field().Interface().(int)
		if !ok {
			return false
		}
		return port > 0 && port <= 65535
	})
	registerTranslation(enTrans, "port", "{0} must be a valid port number")
}

func registerTranslation(trans ut.Translator, tag, text string) {
	validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fe.Field(), fe.Param())
		return t
	})
}
