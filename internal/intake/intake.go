// Package intake validates and stores the two public forms: the partner
// enquiry and the newsletter signup.
package intake

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"salterio-site/internal/backend"
)

const (
	StatusOpen    = "open"
	StatusHandled = "handled"
)

const (
	MsgEnquiryInvalid   = "Please fill your name and a valid email."
	MsgEnquirySent      = "✅ Enquiry sent! We will get back to you soon."
	MsgNewsletterBad    = "Please enter a valid email."
	MsgNewsletterThanks = "Thank you for subscribing!"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail applies the loose shape check used by both forms.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type EnquiryForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (f EnquiryForm) Normalize() EnquiryForm {
	return EnquiryForm{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		Message: strings.TrimSpace(f.Message),
	}
}

// Validate expects a normalized form.
func (f EnquiryForm) Validate() error {
	if f.Name == "" {
		return ValidationError{Field: "name", Message: MsgEnquiryInvalid}
	}
	if !ValidEmail(f.Email) {
		return ValidationError{Field: "email", Message: MsgEnquiryInvalid}
	}
	return nil
}

type SubscribeForm struct {
	Email string `json:"email"`
}

func (f SubscribeForm) Validate() error {
	if !ValidEmail(strings.TrimSpace(f.Email)) {
		return ValidationError{Field: "email", Message: MsgNewsletterBad}
	}
	return nil
}

type Service struct {
	rows backend.RowStore
	log  *slog.Logger
}

func NewService(rows backend.RowStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{rows: rows, log: log}
}

// SubmitEnquiry validates first and touches the row store only when the form
// passes.
func (s *Service) SubmitEnquiry(ctx context.Context, form EnquiryForm) (string, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return "", err
	}
	_, err := s.rows.Insert(ctx, backend.TableEnquiries, backend.Row{
		"name":    form.Name,
		"email":   form.Email,
		"phone":   form.Phone,
		"message": form.Message,
		"status":  StatusOpen,
	})
	if err != nil {
		s.log.Error("enquiry insert failed", "error", err)
		return "", err
	}
	return MsgEnquirySent, nil
}

// Subscribe confirms a newsletter signup. Signups are not stored; only the
// receipt is logged.
func (s *Service) Subscribe(_ context.Context, form SubscribeForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}
	email := strings.TrimSpace(form.Email)
	s.log.Info("newsletter signup received", "domain", email[strings.LastIndex(email, "@")+1:])
	return MsgNewsletterThanks, nil
}
