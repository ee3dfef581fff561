package tts

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidLanguage is returned for language codes the endpoint cannot accept.
var ErrInvalidLanguage = errors.New("invalid language code")

// Primary subtag of 2-3 letters with an optional region or script subtag,
// e.g. "en", "pt-BR", "zh-CN", "yue".
const languageRegexPattern = `^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})?$`

var languagePattern = regexp.MustCompile(languageRegexPattern)

// ValidateLanguage checks that code looks like a language tag.
func ValidateLanguage(code string) error {
	if !languagePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
	}

	return nil
}

// ResolveLanguage returns code, or fallback when code is empty, after
// validation.
func ResolveLanguage(code, fallback string) (string, error) {
	if code == "" {
		code = fallback
	}

	err := ValidateLanguage(code)
	if err != nil {
		return "", err
	}

	return code, nil
}
