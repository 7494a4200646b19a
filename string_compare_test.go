package main

import "testing"

func TestSecureCompareStringsEqual(t *testing.T) {
	if !SecureCompareStrings("my-stream-key", "my-stream-key") {
		t.Fatalf("expected equal strings to compare equal")
	}
}

func TestSecureCompareStringsDifferent(t *testing.T) {
	if SecureCompareStrings("my-stream-key", "not-the-key") {
		t.Fatalf("expected different strings to compare unequal")
	}
}

func TestSecureCompareStringsDifferentLength(t *testing.T) {
	if SecureCompareStrings("short", "a-much-longer-string-value") {
		t.Fatalf("expected strings of different length to compare unequal")
	}
}

func TestSecureCompareStringsEmpty(t *testing.T) {
	if !SecureCompareStrings("", "") {
		t.Fatalf("expected two empty strings to compare equal")
	}
	if SecureCompareStrings("", "x") {
		t.Fatalf("expected empty vs non-empty to compare unequal")
	}
}
