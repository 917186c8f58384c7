// Package customer holds the read-only customer reference data and the rules
// that bind a conversation to a known customer.
package customer

import (
	"context"
	"regexp"
	"strings"
)

type Customer struct {
	ID               string   `db:"customer_id" yaml:"customer_id" json:"customer_id"`
	Name             string   `db:"name" yaml:"name" json:"name"`
	Mobile           string   `db:"mobile" yaml:"mobile,omitempty" json:"mobile,omitempty"`
	PreapprovedLimit *float64 `db:"preapproved_limit" yaml:"preapproved_limit,omitempty" json:"preapproved_limit,omitempty"`
}

// Directory is the external lookup of known customers.
type Directory interface {
	List(ctx context.Context) ([]Customer, error)
}

// Static serves a fixed list.
type Static []Customer

func (s Static) List(context.Context) ([]Customer, error) {
	out := make([]Customer, len(s))
	copy(out, s)

	return out, nil
}

var nonDigits = regexp.MustCompile(`\D`)

// DigitsOnly strips everything except 0-9.
func DigitsOnly(raw string) string {
	return nonDigits.ReplaceAllString(raw, "")
}

// Resolve returns the first customer whose trimmed name equals name ignoring
// case and whose mobile digits equal the digits of mobile.
func Resolve(name, mobile string, customers []Customer) (Customer, bool) {
	wantName := strings.ToLower(strings.TrimSpace(name))
	wantMobile := DigitsOnly(mobile)

	for _, c := range customers {
		if strings.ToLower(strings.TrimSpace(c.Name)) != wantName {
			continue
		}

		if DigitsOnly(c.Mobile) != wantMobile {
			continue
		}

		return c, true
	}

	return Customer{}, false
}

// ResolveFallback guesses a customer id from free text by looking for any
// directory name inside it. Last resort only: callers must prefer an id bound
// during onboarding.
func ResolveFallback(text string, customers []Customer, fallbackID string) string {
	lower := strings.ToLower(text)

	for _, c := range customers {
		if c.Name == "" {
			continue
		}

		if strings.Contains(lower, strings.ToLower(c.Name)) {
			return c.ID
		}
	}

	return fallbackID
}
