package onboarding

import (
	"regexp"
	"strings"

	"github.com/gratefultolord/loan_intake_bot/internal/customer"
)

const (
	minMobileDigits = 8
	otpDigits       = 6
	resendKeyword   = "resend"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	genderOptions    = []string{"Male", "Female", "Third gender"}
	educationOptions = []string{"Matriculate", "Undergraduate", "Graduate", "Postgraduate", "Professional"}
)

func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ToLower(text)

	return text
}

// NormalizeMobile keeps digits only and reports whether enough remain.
func NormalizeMobile(raw string) (string, bool) {
	digits := customer.DigitsOnly(raw)

	return digits, len(digits) >= minMobileDigits
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsResend reports the literal resend keyword, case-insensitively.
func IsResend(text string) bool {
	return NormalizeText(text) == resendKeyword
}

// ExtractOTP returns the code when the input holds exactly six digits.
func ExtractOTP(text string) (string, bool) {
	digits := customer.DigitsOnly(text)

	return digits, len(digits) == otpDigits
}

// MatchGender checks female before male because "female" contains "male".
func MatchGender(text string) (string, bool) {
	lower := NormalizeText(text)

	switch {
	case strings.Contains(lower, "female"):
		return "Female", true
	case strings.Contains(lower, "male"):
		return "Male", true
	case strings.Contains(lower, "third"):
		return "Third gender", true
	default:
		return "", false
	}
}

// MatchEducation picks the longest option contained in the text so that
// "postgraduate" is not read as "graduate".
func MatchEducation(text string) (string, bool) {
	lower := NormalizeText(text)
	best := ""

	for _, opt := range educationOptions {
		if strings.Contains(lower, strings.ToLower(opt)) && len(opt) > len(best) {
			best = opt
		}
	}

	return best, best != ""
}

func ParseYesNo(text string) (string, bool) {
	switch NormalizeText(text) {
	case "yes", "y":
		return LifeInsuranceYes, true
	case "no", "n":
		return LifeInsuranceNo, true
	default:
		return "", false
	}
}
