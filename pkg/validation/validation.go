package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinNameLength = 2
	MaxNameLength = 30
)

var (
	// PartyIDRegex accepts UUIDs and other url-safe tokens.
	PartyIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	// VideoIDRegex matches the 11 character ids used by the catalog.
	VideoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	// videoURLRegex extracts a video id from watch, embed and short links.
	videoURLRegex = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:watch\?v=|embed/)|youtu\.be/)([\w-]{11})`)
)

// ValidateDisplayName checks the trimmed name length.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	n := utf8.RuneCountInString(name)
	if n < MinNameLength {
		return fmt.Errorf("name must be at least %d characters", MinNameLength)
	}
	if n > MaxNameLength {
		return fmt.Errorf("name is too long (max %d characters)", MaxNameLength)
	}
	return nil
}

// ValidatePartyID validates party ID
func ValidatePartyID(partyID string) error {
	if partyID == "" {
		return fmt.Errorf("party ID is required")
	}
	if !PartyIDRegex.MatchString(partyID) {
		return fmt.Errorf("invalid party ID format")
	}
	return nil
}

// ExtractVideoID returns the video id embedded in a watch URL, if any.
func ExtractVideoID(s string) (string, bool) {
	m := videoURLRegex.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StructError reports every failed field of a struct validation.
type StructError struct {
	Fields []FieldError
}

func (e *StructError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator wraps go-playground/validator and reports json field names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// RegisterValidation exposes custom tags, e.g. player state ranges.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}

// Struct validates s and converts failures into a *StructError.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &StructError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Namespace(),
			Code:    strings.ToUpper(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
