package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator(enLocale.Locale())
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func Test_validatePassword(t *testing.T) {
	validate := newTestValidator(t)

	origCommon := commonPasswords
	commonPasswords = []string{"tr0ub4dor&3"}
	defer func() { commonPasswords = origCommon }()

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Sh0rt!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "pass word1A!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "missing digit and special", pwd: "Passwords", wantTag: pwdComplexityTag},
		{name: "missing special", pwd: "Passw0rds", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "J0hn!Doe", wantTag: pwdAttrSimTag},
		{name: "common password", pwd: "Tr0ub4dor&3", wantTag: pwdNoCommonTag},
		{name: "strong password", pwd: "Sup3r$ecret!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "John Doe",
				Username:        "awesomeuser",
				Email:           "awesome@test.cd",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(&nu)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("expected validation errors, got %v", err)
			}
			for _, fe := range vErrs {
				if fe.Tag() == tt.wantTag {
					return
				}
			}
			t.Errorf("tag %q not reported; got %v", tt.wantTag, vErrs)
		})
	}
}

func Test_validateUsernameAndEmail(t *testing.T) {
	validate := newTestValidator(t)

	nu := NewUser{
		Name:            "John Doe",
		Password:        "Sup3r$ecret!",
		PasswordConfirm: "Sup3r$ecret!",
	}
	err := validate.Struct(&nu)
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	var reported int
	for _, fe := range vErrs {
		if fe.Tag() == usernameOrEmailTag {
			reported++
		}
	}
	if reported != 2 {
		t.Errorf("username_or_email reported on %d fields; want 2 (username and email)", reported)
	}
}

func Test_allRolesValidation(t *testing.T) {
	validate := newTestValidator(t)

	nu := NewUser{
		Name:            "John Doe",
		Username:        "awesomeuser",
		Password:        "Sup3r$ecret!",
		PasswordConfirm: "Sup3r$ecret!",
		Roles:           []string{"superhero"},
	}
	err := validate.Struct(&nu)
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if vErrs[0].Tag() != allRolesTag {
		t.Errorf("tag = %q; want %q", vErrs[0].Tag(), allRolesTag)
	}

	nu.Roles = AllRoles
	if err = validate.Struct(&nu); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
