package main

import "testing"

func TestGenerateS0S1S2RejectsWrongSize(t *testing.T) {
	_, err := generateS0S1S2(make([]byte, 10))
	if err == nil {
		t.Fatalf("expected an error for a short client signature")
	}
}

func TestGenerateS0S1S2BasicHandshake(t *testing.T) {
	clientSig := make([]byte, RTMP_SIG_SIZE)
	// All-zero digest offsets won't match GenuineFPConst, so this falls
	// back to the unsigned basic handshake (message format 0).
	out, err := generateS0S1S2(clientSig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1+2*RTMP_SIG_SIZE {
		t.Fatalf("expected %d bytes, got %d", 1+2*RTMP_SIG_SIZE, len(out))
	}
}

func TestPadOrTruncate(t *testing.T) {
	if got := padOrTruncate([]byte{1, 2, 3}, 5); len(got) != 5 {
		t.Fatalf("expected padding to 5 bytes, got %d", len(got))
	}
	if got := padOrTruncate([]byte{1, 2, 3, 4, 5}, 3); len(got) != 3 {
		t.Fatalf("expected truncation to 3 bytes, got %d", len(got))
	}
}
