package handlers

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// idTag accepts a hyphenated uuid in either case; services canonicalize it.
const idTag = "id"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonTagName)
	_ = v.RegisterValidation(idTag, isID)
	return v
}

func init() {
	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		engine.RegisterTagNameFunc(jsonTagName)
		_ = engine.RegisterValidation(idTag, isID)
	}
}

// jsonTagName reports fields by their JSON name so error messages match the
// request body the client sent.
func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func isID(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if len(raw) != 36 {
		return false
	}
	_, err := uuid.Parse(raw)
	return err == nil
}
