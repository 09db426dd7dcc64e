package validation

import (
    "strings"
    "testing"
)

type searchRequest struct {
    DevEUI string `form:"dev_eui"`
    Count  int    `form:"n" validate:"oneof=10 25 50 100"`
    Days   int    `json:"days" validate:"min=0,max=365"`
}

type loginRequest struct {
    Role     string `json:"role" validate:"role"`
    Username string `json:"username"`
    Password string `json:"password"`
}

func TestValidate(t *testing.T) {
    v := NewValidator()

    if err := v.Validate(&searchRequest{Count: 25, Days: 7}); err != nil {
        t.Fatalf("expected valid request, got %v", err)
    }

    err := v.Validate(&searchRequest{Count: 7, Days: -1})
    if err == nil {
        t.Fatalf("expected validation error")
    }
    if !strings.Contains(err.Error(), "n must be one of 10 25 50 100") {
        t.Fatalf("unexpected message %q", err.Error())
    }
    if !strings.Contains(err.Error(), "days must be at least 0") {
        t.Fatalf("unexpected message %q", err.Error())
    }
}

func TestValidateRole(t *testing.T) {
    v := NewValidator()

    if err := v.Validate(&loginRequest{Role: "admin"}); err != nil {
        t.Fatalf("empty credentials must be accepted, got %v", err)
    }
    if err := v.Validate(&loginRequest{Role: "root"}); err == nil {
        t.Fatalf("expected unknown role to fail")
    }
}
