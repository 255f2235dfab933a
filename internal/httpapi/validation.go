package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"stemsplit/internal/model"
)

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

func validateRequest(req model.SeparationRequest) []model.ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.ValidationError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}

	out := make([]model.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.ValidationError{
			Loc:  []string{"body", fe.Field()},
			Msg:  msgForTag(fe.Tag()),
			Type: typeForTag(fe.Tag()),
		})
	}
	return out
}

func msgForTag(tag string) string {
	if tag == "required" {
		return "field required"
	}
	return "invalid value"
}

func typeForTag(tag string) string {
	if tag == "required" {
		return "value_error.missing"
	}
	return "value_error"
}

// validationErrorsForDecode maps JSON decode failures onto the same envelope
// the field validators use, so every 422 carries a uniform detail list.
func validationErrorsForDecode(err error) []model.ValidationError {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return []model.ValidationError{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return []model.ValidationError{{Loc: []string{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
		}
		return []model.ValidationError{{
			Loc:  append([]string{"body"}, strings.Split(typeErr.Field, ".")...),
			Msg:  "str type expected",
			Type: "type_error.str",
		}}
	default:
		return []model.ValidationError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error.jsondecode"}}
	}
}
