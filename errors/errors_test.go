package errors

import (
	"fmt"
	"testing"
)

func TestFrameError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeNotFound, "collection not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeExternalAPI, "import failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeExternalAPI) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("id", "abc").WithDetail("count", 3)
	if detailed.Details["id"] != "abc" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := Mismatch(2, 3)
	if err.Code != ErrCodeMismatch {
		t.Errorf("expected code %s, got %s", ErrCodeMismatch, err.Code)
	}
	if err.Details["selectedCount"] != 2 || err.Details["targetCount"] != 3 {
		t.Errorf("Mismatch should carry both counts, got %v", err.Details)
	}

	err = ExternalAPI("clip", fmt.Errorf("boom"))
	if err.Details["stage"] != "clip" {
		t.Error("ExternalAPI should include stage detail")
	}

	err = LimitExceeded(5)
	if err.Details["limit"] != 5 {
		t.Error("LimitExceeded should include limit detail")
	}
}

func TestIsValidation(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nothing selected", NothingSelected(), true},
		{"mismatch", Mismatch(1, 2), true},
		{"ambiguous", AmbiguousTarget(2), true},
		{"wrapped validation", fmt.Errorf("context: %w", NoTarget()), true},
		{"geometry", DegenerateRect("source", 0, 10), false},
		{"io", IO("/tmp", fmt.Errorf("denied")), false},
		{"plain", fmt.Errorf("plain"), false},
		{"nil", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidation(tc.err); got != tc.want {
				t.Errorf("IsValidation() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", IO("/photos", fmt.Errorf("gone")))
	if GetCode(err) != ErrCodeIO {
		t.Errorf("expected %s, got %s", ErrCodeIO, GetCode(err))
	}
	v, ok := Detail(err, "path")
	if !ok || v != "/photos" {
		t.Errorf("expected path detail, got %v (%v)", v, ok)
	}
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should be empty")
	}
}

func TestAs(t *testing.T) {
	inner := Mismatch(2, 3)
	err := fmt.Errorf("place: %w", fmt.Errorf("batch: %w", inner))

	fe, ok := As(err)
	if !ok || fe != inner {
		t.Fatalf("expected the wrapped FrameError, got %v (%v)", fe, ok)
	}
	if fe.Message != "2 images selected but 3 frames selected" {
		t.Errorf("unexpected message %q", fe.Message)
	}
	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As should not match a plain error")
	}
	if _, ok := As(nil); ok {
		t.Error("As(nil) should not match")
	}
}
