package main

import "testing"

func TestValidateIDStringStrict(t *testing.T) {
	cfg := IDValidationConfig{MaxLength: 32, AllowEmptyString: false, AllowSpecialChars: false}

	if !ValidateIDString("my_channel-01", cfg) {
		t.Fatalf("expected alnum/underscore/dash id to be valid")
	}
	if ValidateIDString("has space", cfg) {
		t.Fatalf("expected id with a space to be invalid in strict mode")
	}
	if ValidateIDString("", cfg) {
		t.Fatalf("expected empty id to be rejected when not allowed")
	}
}

func TestValidateIDStringEmptyAllowed(t *testing.T) {
	cfg := IDValidationConfig{MaxLength: 32, AllowEmptyString: true}

	if !ValidateIDString("", cfg) {
		t.Fatalf("expected empty id to be valid when allowed")
	}
}

func TestValidateIDStringMaxLength(t *testing.T) {
	cfg := IDValidationConfig{MaxLength: 4, AllowSpecialChars: true}

	if !ValidateIDString("abcd", cfg) {
		t.Fatalf("expected id at max length to be valid")
	}
	if ValidateIDString("abcde", cfg) {
		t.Fatalf("expected id over max length to be invalid")
	}
}

func TestValidateIDStringAlwaysRejectsGrammarChars(t *testing.T) {
	cfg := IDValidationConfig{MaxLength: 64, AllowSpecialChars: true}

	for _, bad := range []string{"a>b", "a|b", "a\nb"} {
		if ValidateIDString(bad, cfg) {
			t.Fatalf("expected %q to be rejected even with special chars allowed", bad)
		}
	}
}
