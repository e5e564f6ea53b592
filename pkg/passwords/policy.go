package passwords

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Policy defines the requirements for password complexity
type Policy struct {
	MinLength          int
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
	DisallowCommonPwds bool
	MaxRepeatedChars   int
}

func DefaultPolicy() Policy {
	return Policy{
		MinLength:          8,
		DisallowCommonPwds: true,
	}
}

var commonPasswords = map[string]bool{
	"password": true, "123456": true, "12345678": true, "123456789": true,
	"qwerty": true, "admin": true, "welcome": true, "login": true,
	"abc123": true, "letmein": true, "monkey": true, "iloveyou": true,
	"password1": true, "qwerty123": true, "1q2w3e4r": true, "admin123": true,
}

// PolicyChecker validates new passwords against a Policy.
type PolicyChecker struct {
	policy Policy
}

func NewPolicyChecker(policy Policy) *PolicyChecker {
	return &PolicyChecker{policy: policy}
}

// Violations lists every rule the password breaks. userAttributes (such as the
// email address) must not appear inside the password.
func (pc *PolicyChecker) Violations(password string, userAttributes ...string) []string {
	var problems []string
	p := pc.policy

	if len(password) < p.MinLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if p.RequireUppercase && !upperRe.MatchString(password) {
		problems = append(problems, "This password must contain at least one uppercase letter.")
	}
	if p.RequireLowercase && !lowerRe.MatchString(password) {
		problems = append(problems, "This password must contain at least one lowercase letter.")
	}
	if p.RequireDigit && !digitRe.MatchString(password) {
		problems = append(problems, "This password must contain at least one digit.")
	}
	if p.RequireSpecialChar && !specialRe.MatchString(password) {
		problems = append(problems, "This password must contain at least one special character.")
	}
	if p.DisallowCommonPwds && commonPasswords[strings.ToLower(password)] {
		problems = append(problems, "This password is too common.")
	}
	if p.MaxRepeatedChars > 0 && hasRepeatedChars(password, p.MaxRepeatedChars) {
		problems = append(problems, fmt.Sprintf("This password contains more than %d repeated characters in a row.", p.MaxRepeatedChars))
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	for _, attr := range userAttributes {
		if similarTo(password, attr) {
			problems = append(problems, "The password is too similar to the account details.")
			break
		}
	}
	return problems
}

// Check returns a Validation error carrying every violation.
func (pc *PolicyChecker) Check(password string, userAttributes ...string) error {
	problems := pc.Violations(password, userAttributes...)
	if len(problems) == 0 {
		return nil
	}
	return apperrors.Validation(strings.Join(problems, " ")).WithDetail("violations", problems)
}

func hasRepeatedChars(password string, maxRepeated int) bool {
	run := 1
	for i := 1; i < len(password); i++ {
		if password[i] == password[i-1] {
			run++
			if run > maxRepeated {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func similarTo(password, attr string) bool {
	attr = strings.ToLower(attr)
	password = strings.ToLower(password)
	if attr == "" {
		return false
	}
	if password == attr {
		return true
	}
	local, _, _ := strings.Cut(attr, "@")
	return len(local) >= 4 && strings.Contains(password, local)
}
