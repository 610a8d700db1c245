package application

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

// RegisterConfigValidators registers the custom validators referenced by
// Config struct tags: wsurl, httpurl and locale.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("wsurl", validateWSURL); err != nil {
		return fmt.Errorf("failed to register wsurl validator: %w", err)
	}
	if err := v.RegisterValidation("httpurl", validateHTTPURL); err != nil {
		return fmt.Errorf("failed to register httpurl validator: %w", err)
	}
	if err := v.RegisterValidation("locale", validateLocale); err != nil {
		return fmt.Errorf("failed to register locale validator: %w", err)
	}
	return nil
}

// validateWSURL accepts absolute ws:// and wss:// URLs with a host.
func validateWSURL(fl validator.FieldLevel) bool {
	return hasScheme(fl.Field().String(), "ws", "wss")
}

// validateHTTPURL accepts absolute http:// and https:// URLs with a host.
func validateHTTPURL(fl validator.FieldLevel) bool {
	return hasScheme(fl.Field().String(), "http", "https")
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

// validateLocale accepts any well-formed BCP 47 tag.
func validateLocale(fl validator.FieldLevel) bool {
	_, err := language.Parse(fl.Field().String())
	return err == nil
}
