package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

var (
	courseLevelTag  = "courselevel"
	courseLevelText = "invalid course level"
)

// InitValidators registers this package's custom validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseLevelTag, courseLevelValidation)
	core.RegisterCustomTranslation(validate, translator, courseLevelTag, courseLevelText)
}

// courseLevelValidation checks that the provided level is in AllLevels
func courseLevelValidation(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	for _, known := range AllLevels {
		if level == known {
			return true
		}
	}
	return false
}
