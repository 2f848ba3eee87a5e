package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	return phone != "" && phoneRegex.MatchString(phone) && len(phone) <= 20
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 100
}

const (
	MinPasswordLength = 8
	maxPasswordLength = 128
	// similarity at or above this ratio rejects the password
	maxSimilarity = 0.7
)

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "abc12345": {},
	"11111111": {}, "00000000": {}, "dragon123": {}, "monkey123": {}, "letmein1": {},
	"trustno1": {}, "superman": {}, "starwars": {}, "whatever": {}, "passw0rd": {},
	"admin123": {}, "qwerty12": {}, "1q2w3e4r": {}, "zaq12wsx": {}, "asdfghjkl": {},
}

// PasswordAttrs are the account fields a password must not resemble.
type PasswordAttrs struct {
	Phone    string
	Email    string
	FullName string
}

// CheckPassword applies the password policy and returns every rule the
// password breaks. An empty result means the password is acceptable.
func CheckPassword(password string, attrs PasswordAttrs) []string {
	var problems []string

	if len(password) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > maxPasswordLength {
		problems = append(problems, "This password is too long.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if field := similarAttribute(password, attrs); field != "" {
		problems = append(problems, "The password is too similar to the "+field+".")
	}
	return problems
}

func similarAttribute(password string, attrs PasswordAttrs) string {
	pw := strings.ToLower(password)
	if pw == "" {
		return ""
	}
	fields := []struct {
		name, value string
	}{
		{"phone number", attrs.Phone},
		{"email", attrs.Email},
		{"full name", attrs.FullName},
	}
	for _, f := range fields {
		value := strings.ToLower(strings.TrimSpace(f.value))
		if value == "" {
			continue
		}
		parts := append([]string{value}, strings.FieldsFunc(value, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})...)
		for _, part := range parts {
			if len(part) >= 3 && similarity(pw, part) >= maxSimilarity {
				return f.name
			}
		}
	}
	return ""
}

// similarity is 2*M/T where M is the longest common substring length and T
// the combined length of both strings.
func similarity(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	return 2 * float64(longestCommonSubstring(a, b)) / float64(len(a)+len(b))
}

func longestCommonSubstring(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}
