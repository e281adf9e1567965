package service

import (
	"encoding/json"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgBlank         = "This field may not be blank."
	msgInvalidEmail  = "Enter a valid email address."
	msgInvalidInt    = "A valid integer is required."
	msgMinAge        = "Ensure this value is greater than or equal to 0."
	msgUsernameTaken = "A user with that username already exists."
	msgUsername      = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	trailingZeros   = regexp.MustCompile(`\.0*\s*$`)
)

// RegisterRequest is the self-registration body. Pointers distinguish a missing field
// from an empty one; age is kept raw so both numbers and numeric strings are accepted.
type RegisterRequest struct {
	Username *string         `json:"username"`
	Email    *string         `json:"email"`
	Password *string         `json:"password"`
	Age      json.RawMessage `json:"age"`
	Gender   *string         `json:"gender"`
	Region   *string         `json:"region"`
}

type registration struct {
	username string
	email    string
	password string
	age      int
	gender   string
	region   string
}

func (r *RegisterRequest) validate() (*registration, FieldErrors) {
	errs := FieldErrors{}
	out := &registration{}

	out.username = requiredString(errs, "username", r.Username, 150)
	if out.username != "" && !usernamePattern.MatchString(out.username) {
		errs.Add("username", msgUsername)
	}

	out.email = requiredString(errs, "email", r.Email, 254)
	if out.email != "" && !validEmail(out.email) {
		errs.Add("email", msgInvalidEmail)
	}

	// passwords are not trimmed
	switch {
	case r.Password == nil:
		errs.Add("password", msgRequired)
	case *r.Password == "":
		errs.Add("password", msgBlank)
	default:
		out.password = *r.Password
	}

	out.age = parseAge(errs, r.Age)
	out.gender = optionalString(errs, "gender", r.Gender, 10)
	out.region = optionalString(errs, "region", r.Region, 100)

	return out, errs
}

func requiredString(errs FieldErrors, field string, v *string, max int) string {
	if v == nil {
		errs.Add(field, msgRequired)
		return ""
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		errs.Add(field, msgBlank)
		return ""
	}
	checkLength(errs, field, s, max)
	return s
}

func optionalString(errs FieldErrors, field string, v *string, max int) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	checkLength(errs, field, s, max)
	return s
}

func checkLength(errs FieldErrors, field, s string, max int) {
	if utf8.RuneCountInString(s) > max {
		errs.Add(field, "Ensure this field has no more than "+strconv.Itoa(max)+" characters.")
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// parseAge accepts a JSON number or a numeric string. Missing, null and empty values
// are reported as required.
func parseAge(errs FieldErrors, raw json.RawMessage) int {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		errs.Add("age", msgRequired)
		return 0
	}

	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			errs.Add("age", msgInvalidInt)
			return 0
		}
		text = strings.TrimSpace(s)
		if text == "" {
			errs.Add("age", msgRequired)
			return 0
		}
	}

	age, err := strconv.Atoi(trailingZeros.ReplaceAllString(text, ""))
	if err != nil {
		errs.Add("age", msgInvalidInt)
		return 0
	}
	if age < 0 {
		errs.Add("age", msgMinAge)
		return 0
	}
	return age
}
