package generr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsKind(t *testing.T) {
	err := fmt.Errorf("run failed: %w", Dependency("city", "column is not populated"))

	if !errors.Is(err, ErrDependency) {
		t.Errorf("expected errors.Is(err, ErrDependency)")
	}
	if errors.Is(err, ErrGeneration) {
		t.Errorf("dependency error must not match ErrGeneration")
	}
	if KindOf(err) != KindDependency {
		t.Errorf("expected KindDependency, got %v", KindOf(err))
	}
}

func TestValidation_ListsAllFields(t *testing.T) {
	err := Validation([]FieldError{
		{Field: "start", Message: "expected float"},
		{Field: "end", Message: "required"},
	})

	msg := err.Error()
	for _, want := range []string{"ValidationError", "start: expected float", "end: required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}
}

func TestWithStep(t *testing.T) {
	err := Generation("produced %d values, expected %d", 3, 5).WithStep(2, "amount")

	if err.Step != 2 || err.Column != "amount" {
		t.Fatalf("unexpected step binding: %d %q", err.Step, err.Column)
	}
	if !strings.Contains(err.Error(), `(step 2, column "amount")`) {
		t.Errorf("unexpected message: %s", err.Error())
	}

	// Уже привязанная ошибка не меняется
	again := err.WithStep(5, "other")
	if again.Step != 2 || again.Column != "amount" {
		t.Errorf("binding must be kept, got %d %q", again.Step, again.Column)
	}
}

func TestIsTransient(t *testing.T) {
	cause := errors.New("connection reset")

	if !IsTransient(fmt.Errorf("batch 1: %w", Publish("kafka", true, cause))) {
		t.Errorf("expected transient publish error")
	}
	if IsTransient(Publish("kafka", false, cause)) {
		t.Errorf("fatal publish error reported as transient")
	}
	if IsTransient(cause) {
		t.Errorf("plain error reported as transient")
	}
	if !errors.Is(Publish("kafka", true, cause), cause) {
		t.Errorf("publish error must unwrap to its cause")
	}
}
