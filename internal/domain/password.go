package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	// bcrypt rejects inputs over 72 bytes, so the policy caps there and
	// reports the limit up front rather than failing at hash time.
	maxPasswordLength = 72
	maxIdenticalRun   = 3
)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?~` + "`"

var weakSubstrings = []string{
	"password", "123456", "12345678", "qwerty", "abc123",
	"letmein", "admin", "welcome", "iloveyou",
}

// StrengthReport is the outcome of password-policy evaluation. Score is
// additive across satisfied criteria and length bonuses; it feeds UX
// feedback only and never gates below the hard requirements.
type StrengthReport struct {
	OK         bool
	Violations []string
	Score      int
}

// CheckPasswordStrength applies the back-office password policy and reports
// every violation rather than stopping at the first.
func CheckPasswordStrength(password string) StrengthReport {
	report := StrengthReport{}

	if len(password) < minPasswordLength {
		report.Violations = append(report.Violations, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	} else {
		report.Score += 10
	}
	if len(password) > maxPasswordLength {
		report.Violations = append(report.Violations, fmt.Sprintf("must be at most %d characters", maxPasswordLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		report.Violations = append(report.Violations, "must contain an uppercase letter")
	} else {
		report.Score += 10
	}
	if !hasLower {
		report.Violations = append(report.Violations, "must contain a lowercase letter")
	} else {
		report.Score += 10
	}
	if !hasDigit {
		report.Violations = append(report.Violations, "must contain a digit")
	} else {
		report.Score += 10
	}
	if !hasSymbol {
		report.Violations = append(report.Violations, "must contain a symbol")
	} else {
		report.Score += 10
	}

	if hasIdenticalRun(password, maxIdenticalRun+1) {
		report.Violations = append(report.Violations, fmt.Sprintf("must not repeat the same character more than %d times in a row", maxIdenticalRun))
	}

	lowered := strings.ToLower(password)
	for _, weak := range weakSubstrings {
		if strings.Contains(lowered, weak) {
			report.Violations = append(report.Violations, fmt.Sprintf("must not contain the weak pattern %q", weak))
			break
		}
	}

	// Length bonuses beyond the minimum.
	if len(password) >= 12 {
		report.Score += 10
	}
	if len(password) >= 16 {
		report.Score += 10
	}

	report.OK = len(report.Violations) == 0
	return report
}

func hasIdenticalRun(s string, runLength int) bool {
	run := 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= runLength {
			return true
		}
		prev = r
	}
	return false
}
