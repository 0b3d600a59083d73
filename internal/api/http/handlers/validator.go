package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// RequestValidator decodes request bodies and checks struct tags.
type RequestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewRequestValidator builds a validator with English messages.
func NewRequestValidator() (*RequestValidator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	return &RequestValidator{validate: validate, translator: trans}, nil
}

// Bind parses the JSON body into v and validates it.
func (rv *RequestValidator) Bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.NewValidationError("invalid request payload", nil)
	}
	if err := rv.validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
			return apperrors.NewValidationError("invalid request payload", nil)
		}
		fields := make(map[string]any, len(validationErrors))
		for _, fe := range validationErrors {
			fields[fe.Field()] = fe.Translate(rv.translator)
		}
		return apperrors.NewValidationError(validationErrors[0].Translate(rv.translator), map[string]any{"fields": fields})
	}
	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
