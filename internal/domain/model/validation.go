package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"telegram-digital-shop/internal/domain"
)

const minPasswordLen = 7

var (
	emailRe         = regexp.MustCompile(`(?i)^[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	phoneRe         = regexp.MustCompile(`^\+?[\d\-() ]{7,}$`)
	phoneSeparators = strings.NewReplacer("+", "", "-", "", "(", "", ")", "", " ", "")
)

// Accept checks input against the data type and returns the value to store.
// With validate=false the raw input is accepted as is.
func (d DataType) Accept(input string, validate bool) (string, error) {
	if !validate {
		return input, nil
	}
	value := strings.TrimSpace(input)
	switch d {
	case DataEmail:
		if !emailRe.MatchString(value) {
			return "", fmt.Errorf("%w: not an email", domain.ErrInvalidInput)
		}
		return value, nil
	case DataPhone:
		if !phoneRe.MatchString(value) {
			return "", fmt.Errorf("%w: not a phone number", domain.ErrInvalidInput)
		}
		digits := phoneSeparators.Replace(value)
		if len(digits) < 7 {
			return "", fmt.Errorf("%w: too few digits", domain.ErrInvalidInput)
		}
		return digits, nil
	case DataPassword:
		if utf8.RuneCountInString(input) < minPasswordLen {
			return "", fmt.Errorf("%w: password too short", domain.ErrInvalidInput)
		}
		return input, nil
	default:
		return "", fmt.Errorf("%w: unknown data type", domain.ErrInvalidInput)
	}
}
