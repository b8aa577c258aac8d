package contact

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	defaultSource      = "website"
	defaultProjectType = "other"
)

// ParseSubmission turns an untyped request body into a normalized request.
// Every missing required field is reported at once.
func ParseSubmission(fields map[string]any, meta RequestMeta) (SubmissionRequest, error) {
	req := SubmissionRequest{
		Name:        textField(fields, "name"),
		Email:       strings.ToLower(textField(fields, "email")),
		Phone:       stringField(fields, "phone"),
		Subject:     textField(fields, "subject"),
		Message:     textField(fields, "message"),
		ProjectType: stringField(fields, "projectType", "project_type"),
		Budget:      stringField(fields, "budget"),
		Timeline:    stringField(fields, "timeline"),
		Source:      stringField(fields, "source"),
		ClientIP:    strings.TrimSpace(meta.ClientIP),
		ClientAgent: strings.TrimSpace(meta.ClientAgent),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", req.Name},
		{"email", req.Email},
		{"subject", req.Subject},
		{"message", req.Message},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return SubmissionRequest{}, missingFields(missing)
	}

	if req.Source == "" {
		req.Source = defaultSource
	}
	if req.ProjectType == "" {
		req.ProjectType = defaultProjectType
	}
	return req, nil
}

// textField returns the trimmed string under key. Any other JSON type counts
// as absent, so required fields cannot be satisfied by numbers or booleans.
func textField(fields map[string]any, key string) string {
	v, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// stringField returns the first present key as a trimmed string. Scalars that
// are not strings are rendered; objects and arrays count as absent.
func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			return strings.TrimSpace(v)
		case float64, bool, int, int64:
			return fmt.Sprint(v)
		}
	}
	return ""
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	return v
}()

// checkSchema enforces the stored-record rules the store applies on insert.
func checkSchema(r SubmissionRequest) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Kind: KindInvalidField}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fe.Field())
		out.Messages = append(out.Messages, schemaMessage(fe))
	}
	return out
}

func schemaMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "Please enter a valid email"
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
	case "required":
		return fe.Field() + " is required"
	default:
		return fe.Field() + " is invalid"
	}
}
