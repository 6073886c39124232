package slide

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FontFamily is one of the fonts a text slide can be set in.
type FontFamily string

const (
	FontArial         FontFamily = "Arial"
	FontVerdana       FontFamily = "Verdana"
	FontTimesNewRoman FontFamily = "Times New Roman"
	FontCourier       FontFamily = "Courier"
)

// FontFamilies lists the supported fonts in menu order.
var FontFamilies = []FontFamily{FontArial, FontVerdana, FontTimesNewRoman, FontCourier}

const (
	MinFontSize     = 8
	MaxFontSize     = 72
	DefaultFontSize = 24
	DefaultColor    = "#FFFFFF"
)

// Style describes how a text slide is drawn
type Style struct {
	FontSize   int        `yaml:"font_size" validate:"min=8,max=72"`
	Color      string     `yaml:"color" validate:"required,hexcolor"`
	FontFamily FontFamily `yaml:"font_family" validate:"fontfamily"`
}

// DefaultStyle matches the initial values of the text form.
func DefaultStyle() Style {
	return Style{
		FontSize:   DefaultFontSize,
		Color:      DefaultColor,
		FontFamily: FontArial,
	}
}

// WithDefaults fills zero fields from DefaultStyle.
func (s Style) WithDefaults() Style {
	d := DefaultStyle()
	if s.FontSize == 0 {
		s.FontSize = d.FontSize
	}
	if s.Color == "" {
		s.Color = d.Color
	}
	if s.FontFamily == "" {
		s.FontFamily = d.FontFamily
	}
	return s
}

// FieldError is a single rejected style field.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

// StyleError collects every invalid field of a Style.
type StyleError struct {
	Fields []FieldError
}

func (e *StyleError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid style: " + strings.Join(msgs, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func styleValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("fontfamily", func(fl validator.FieldLevel) bool {
			return IsFontFamily(FontFamily(fl.Field().String()))
		})
		validate = v
	})
	return validate
}

// IsFontFamily reports whether f is one of FontFamilies.
func IsFontFamily(f FontFamily) bool {
	for _, known := range FontFamilies {
		if f == known {
			return true
		}
	}
	return false
}

// ValidateStyle returns a *StyleError when s breaks the style invariants.
func ValidateStyle(s Style) error {
	err := styleValidator().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &StyleError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "min", "max":
			msg = fmt.Sprintf("%s must be between %d and %d", fe.Field(), MinFontSize, MaxFontSize)
		case "required":
			msg = fmt.Sprintf("%s is required", fe.Field())
		case "hexcolor":
			msg = fmt.Sprintf("%s must be a hex color, got %q", fe.Field(), fe.Value())
		case "fontfamily":
			msg = fmt.Sprintf("%s %q is not supported", fe.Field(), fe.Value())
		default:
			msg = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Code:    strings.ToUpper(fe.Tag()),
			Message: msg,
		})
	}
	return out
}
