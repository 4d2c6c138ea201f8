package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/services"
)

var registerOnce sync.Once

// RegisterValidators adds the auditid and domainname tags to Gin's validator
// and makes field errors report JSON names. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("auditid", func(fl validator.FieldLevel) bool {
			return services.ValidAuditID(fl.Field().String())
		})
		_ = v.RegisterValidation("domainname", func(fl validator.FieldLevel) bool {
			_, err := domain.NormalizeDomain(fl.Field().String())
			return err == nil
		})
	})
}

// bindMessage turns a binding failure into a user-facing message.
func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "Invalid request body"
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "domainname":
		return "Invalid domain format"
	case "auditid":
		return "Invalid audit ID"
	}
	return "Invalid " + fe.Field()
}
