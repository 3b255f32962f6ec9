package auth

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"tunishield/internal/errutil"
)

const (
	IntentLogin  = "login"
	IntentSignup = "signup"

	codeLength    = 6
	maxNameLength = 50
)

type RequestCodeInput struct {
	Email  string `json:"email"`
	Type   string `json:"type"`
	Locale string `json:"-"`
}

func (in *RequestCodeInput) Validate() error {
	email, ok := normalizeEmail(in.Email)
	if !ok {
		return errutil.New(errutil.CodeBadRequest, "Invalid email address")
	}
	if in.Type != IntentLogin && in.Type != IntentSignup {
		return errutil.New(errutil.CodeBadRequest, "Type must be login or signup")
	}
	in.Email = email
	return nil
}

type VerifyCodeInput struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (in *VerifyCodeInput) Validate() error {
	email, ok := normalizeEmail(in.Email)
	if !ok {
		return errutil.New(errutil.CodeBadRequest, "Invalid email address")
	}
	code := strings.TrimSpace(in.Code)
	if len(code) != codeLength {
		return errutil.New(errutil.CodeBadRequest, "Code must be 6 digits")
	}
	in.Email = email
	in.Code = code
	return nil
}

type ProfileInput struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

func (in *ProfileInput) Validate() error {
	fields := map[string]string{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch n := utf8.RuneCountInString(name); {
		case n == 0:
			fields["name"] = "Name is required"
		case n > maxNameLength:
			fields["name"] = "Name must be at most 50 characters"
		default:
			in.Name = &name
		}
	}

	if in.AvatarURL != nil && *in.AvatarURL != "" && !validHTTPURL(*in.AvatarURL) {
		fields["avatarUrl"] = "Avatar must be a valid URL"
	}

	if len(fields) > 0 {
		return errutil.Validation(fields)
	}
	return nil
}

func (in ProfileInput) update() ProfileUpdate {
	return ProfileUpdate{Name: in.Name, AvatarURL: in.AvatarURL}
}

// normalizeEmail accepts a bare address only; display-name forms such as
// "Amira <a@b.tn>" are rejected.
func normalizeEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func validHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
