package projcfg

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// projectIDDisallowed lists the punctuation a project id may not contain.
const projectIDDisallowed = " `!@#$%^&*()_+=[]{};':\"\\|,.<>/?~"

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("projectid", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), projectIDDisallowed)
	})
	validate.RegisterStructValidation(pipelineRequiresGitlab, Config{})
	return validate
}

func pipelineRequiresGitlab(sl validator.StructLevel) {
	cfg, _ := sl.Current().Interface().(Config)
	if !cfg.UsesCodePipeline() {
		return
	}
	if cfg.GitlabGroup == "" {
		sl.ReportError(cfg.GitlabGroup, "gitlabGroup", "GitlabGroup", "required_with_pipeline", "")
	}
	if cfg.GitlabProject == "" {
		sl.ReportError(cfg.GitlabProject, "gitlabProject", "GitlabProject", "required_with_pipeline", "")
	}
}

func (c *Config) validate() error {
	if err := newValidator().Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, e := range validationErrs {
				msgs = append(msgs, formatValidationError(e))
			}
			return errors.Errorf("project configuration validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return errors.Wrap(err, "project configuration validation failed")
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := fieldPath(e)
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_with_pipeline":
		return fmt.Sprintf("%s is required when codePipeline is true", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters (got %q)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s (got %q)", field, e.Param(), e.Value())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters (got %q)", field, e.Param(), e.Value())
	case "number":
		return fmt.Sprintf("%s must contain only digits (got %q)", field, e.Value())
	case "projectid":
		return fmt.Sprintf("%s should contain only letters and '-' (got %q)", field, e.Value())
	default:
		return fmt.Sprintf("%s failed validation %q", field, e.Tag())
	}
}

func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
