package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"sibeo/internal/config"
	"sibeo/internal/models"
)

// PopupKind selects how a popup is styled
type PopupKind string

const (
	PopupError   PopupKind = "error"
	PopupWarning PopupKind = "warning"
	PopupInfo    PopupKind = "info"
	PopupSuccess PopupKind = "success"
)

// Popup is a dismissible message shown after a form action
type Popup struct {
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message"`
	Kind    PopupKind `json:"kind"`
}

// LoginForm is the sign-in form
type LoginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// RegisterForm is the sign-up form
type RegisterForm struct {
	Name            string      `form:"name" validate:"required"`
	Email           string      `form:"email" validate:"required"`
	Password        string      `form:"password" validate:"required,min=6"`
	ConfirmPassword string      `form:"confirm_password" validate:"required,eqfield=Password"`
	Role            models.Role `form:"role" validate:"oneof=student instructor"`
	InstructorCode  string      `form:"instructor_code"`
}

var (
	popupIncompleteLogin = Popup{Title: "Data Tidak Lengkap", Message: "Mohon isi email dan password", Kind: PopupWarning}
	popupIncomplete      = Popup{Title: "Data Tidak Lengkap", Message: "Mohon isi semua field yang diperlukan", Kind: PopupWarning}
	popupMismatch        = Popup{Title: "Password Tidak Cocok", Message: "Password dan konfirmasi password tidak cocok", Kind: PopupWarning}
	popupShortPassword   = Popup{Title: "Password Terlalu Pendek", Message: "Password minimal harus 6 karakter", Kind: PopupWarning}
	popupCodeRequired    = Popup{
		Title:   "Kode Verifikasi Diperlukan",
		Message: "Kode verifikasi diperlukan untuk mendaftar sebagai Instructor. Silakan hubungi admin melalui WhatsApp.",
		Kind:    PopupInfo,
	}
	popupCodeInvalid = Popup{
		Title:   "Kode Verifikasi Salah",
		Message: "Kode verifikasi yang Anda masukkan salah. Hubungi admin di WhatsApp 085216069919 untuk mendapatkan kode yang benar.",
		Kind:    PopupError,
	}
)

// FormValidator checks sign-in and sign-up forms before they reach the API
type FormValidator struct {
	validate *validator.Validate
	codeHash []byte
	code     string
}

// NewFormValidator creates a validator. A configured bcrypt hash takes
// precedence over the plaintext instructor code.
func NewFormValidator(cfg config.AuthConfig) *FormValidator {
	return &FormValidator{
		validate: validator.New(),
		codeHash: []byte(cfg.InstructorCodeHash),
		code:     cfg.InstructorCode,
	}
}

// ValidateLogin trims the email and returns a popup describing the first
// problem, or nil
func (v *FormValidator) ValidateLogin(form *LoginForm) *Popup {
	form.Email = strings.TrimSpace(form.Email)
	if err := v.validate.Struct(form); err != nil {
		p := popupIncompleteLogin
		return &p
	}
	return nil
}

// ValidateRegister trims name and email and returns a popup describing the
// first problem, or nil. An empty role is treated as student.
func (v *FormValidator) ValidateRegister(form *RegisterForm) *Popup {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if form.Role == "" {
		form.Role = models.RoleStudent
	}

	if err := v.validate.Struct(form); err != nil {
		failed := failedTags(err)
		var p Popup
		switch {
		case failed["required"] || failed["oneof"]:
			p = popupIncomplete
		case failed["eqfield"]:
			p = popupMismatch
		default:
			p = popupShortPassword
		}
		return &p
	}

	if form.Role == models.RoleInstructor {
		if strings.TrimSpace(form.InstructorCode) == "" {
			p := popupCodeRequired
			return &p
		}
		if !v.CheckInstructorCode(form.InstructorCode) {
			p := popupCodeInvalid
			return &p
		}
	}
	return nil
}

// CheckInstructorCode reports whether code unlocks instructor registration
func (v *FormValidator) CheckInstructorCode(code string) bool {
	if len(v.codeHash) > 0 {
		return bcrypt.CompareHashAndPassword(v.codeHash, []byte(code)) == nil
	}
	if v.code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(v.code)) == 1
}

// HashInstructorCode produces the value for the instructor code hash setting
func HashInstructorCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LoginFailurePopup picks the popup for a failed sign-in
func LoginFailurePopup(msg string) Popup {
	switch {
	case strings.Contains(msg, "tidak ditemukan"):
		return Popup{Title: "Akun Tidak Ditemukan", Message: msg, Kind: PopupError}
	case strings.Contains(msg, "salah"):
		return Popup{Title: "Login Gagal", Message: msg, Kind: PopupWarning}
	case msg == "":
		return Popup{Message: "Terjadi kesalahan saat login", Kind: PopupError}
	}
	return Popup{Message: msg, Kind: PopupError}
}

// RegisterFailurePopup picks the popup for a failed sign-up
func RegisterFailurePopup(msg string) Popup {
	if msg == "" {
		msg = "Terjadi kesalahan saat registrasi"
	}
	switch {
	case strings.Contains(msg, "terdaftar") || strings.Contains(msg, "sudah") || strings.Contains(msg, "already"):
		return Popup{Title: "Email Sudah Terdaftar", Message: msg, Kind: PopupWarning}
	case strings.Contains(msg, "server") || strings.Contains(msg, "koneksi"):
		return Popup{Title: "Gagal Terhubung", Message: msg, Kind: PopupError}
	}
	return Popup{Title: "Registrasi Gagal", Message: msg, Kind: PopupError}
}

func failedTags(err error) map[string]bool {
	tags := make(map[string]bool)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			tags[fe.Tag()] = true
		}
	}
	return tags
}
