package mailer

import (
	"strings"
	"testing"
)

func TestNewHandoffMail(t *testing.T) {
	subject, body := NewHandoffMail("Ravi", "T-2026-014", "Brake Drum", "Pouring", "awaiting your approval")

	if !strings.Contains(subject, "T-2026-014") {
		t.Errorf("subject should carry the trial id, got %q", subject)
	}
	for _, want := range []string{"Ravi", "Brake Drum", "Pouring", "awaiting your approval"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestNewOTPMail(t *testing.T) {
	subject, body := NewOTPMail("Ravi", "482913", 5)

	if subject == "" {
		t.Error("subject should not be empty")
	}
	if !strings.Contains(body, "482913") {
		t.Errorf("body should carry the otp, got:\n%s", body)
	}
	if !strings.Contains(body, "5") {
		t.Errorf("body should mention the ttl, got:\n%s", body)
	}
}
