package schema

import (
	"strings"
	"testing"
)

func TestValidateClassification_Valid(t *testing.T) {
	payload := []byte(`{
		"is_security_event": true,
		"location": "  אשקלון ",
		"title": "ירי רקטות לעבר אשקלון",
		"summary": "שתי רקטות יורטו",
		"confidence": 0.92
	}`)

	got, err := ValidateClassification(payload)
	if err != nil {
		t.Fatalf("expected classification to be valid, got error: %v", err)
	}
	if !got.IsSecurityEvent {
		t.Fatalf("expected is_security_event=true")
	}
	if got.Location != "אשקלון" {
		t.Fatalf("expected trimmed location, got %q", got.Location)
	}
	if got.Confidence == nil || *got.Confidence != 0.92 {
		t.Fatalf("unexpected confidence: %v", got.Confidence)
	}
}

func TestValidateClassification_MissingLocation(t *testing.T) {
	_, err := ValidateClassification([]byte(`{"is_security_event": false}`))
	if err == nil {
		t.Fatalf("expected validation to fail for missing location")
	}
}

func TestValidateClassification_WrongType(t *testing.T) {
	_, err := ValidateClassification([]byte(`{"is_security_event": "yes", "location": "x"}`))
	if err == nil {
		t.Fatalf("expected validation to fail for string is_security_event")
	}
}

func TestValidateClassification_ConfidenceRange(t *testing.T) {
	_, err := ValidateClassification([]byte(`{"is_security_event": true, "location": "x", "confidence": 1.5}`))
	if err == nil {
		t.Fatalf("expected validation to fail for confidence above 1")
	}
}

func TestValidateClassification_TrailingContent(t *testing.T) {
	_, err := ValidateClassification([]byte(`{"is_security_event": true, "location": "x"} trailing`))
	if err == nil {
		t.Fatalf("expected trailing content to be rejected")
	}
	if !strings.Contains(err.Error(), "trailing content") {
		t.Fatalf("expected trailing content error, got: %v", err)
	}
}

func TestValidateClassification_Empty(t *testing.T) {
	if _, err := ValidateClassification([]byte("  ")); err == nil {
		t.Fatalf("expected empty payload to fail")
	}
}
