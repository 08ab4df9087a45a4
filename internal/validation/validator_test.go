package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

type sample struct {
	Name    string `json:"name" validate:"required,max=5"`
	Kind    string `json:"kind" validate:"omitempty,oneof=a b"`
	Count   int    `json:"count" validate:"min=0,max=10"`
	Setting string `koanf:"setting" validate:"required"`
}

func TestValidateStructOK(t *testing.T) {
	if err := ValidateStruct(sample{Name: "ok", Kind: "a", Count: 3, Setting: "x"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidateStructMessages(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		field   string
		message string
	}{
		{"required", sample{Setting: "x"}, "name", "name is required"},
		{"string max", sample{Name: "toolong", Setting: "x"}, "name", "name must be at most 5 characters"},
		{"oneof", sample{Name: "ok", Kind: "c", Setting: "x"}, "kind", "kind must be one of: a b"},
		{"int max", sample{Name: "ok", Count: 11, Setting: "x"}, "count", "count must be at most 10"},
		{"koanf name", sample{Name: "ok"}, "setting", "setting is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.in)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected 1 field error, got %d: %v", len(verr.Fields), verr)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Fields[0].Field, tt.field)
			}
			if verr.Fields[0].Message != tt.message {
				t.Errorf("message = %q, want %q", verr.Fields[0].Message, tt.message)
			}
		})
	}
}

func TestInputErrorConversion(t *testing.T) {
	verr := ValidateStruct(sample{})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("expected joined messages, got %q", verr.Error())
	}

	err := verr.InputError()
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	var inputErr *domain.InputError
	if !errors.As(err, &inputErr) || inputErr.Field != "name" {
		t.Errorf("expected InputError on name, got %v", err)
	}
}
