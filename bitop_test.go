package main

import "testing"

func TestBitopReadAdvancesAcrossCalls(t *testing.T) {
	// 0xAB = 1010 1011
	b := createBitop([]byte{0xAB})

	if v := b.Read(4); v != 0x0A {
		t.Fatalf("expected first nibble 0x0A, got 0x%X", v)
	}
	if v := b.Read(4); v != 0x0B {
		t.Fatalf("expected second nibble 0x0B, got 0x%X", v)
	}
}

func TestBitopLookDoesNotConsume(t *testing.T) {
	b := createBitop([]byte{0xF0})

	peeked := b.Look(4)
	read := b.Read(4)

	if peeked != read {
		t.Fatalf("Look(4)=0x%X should match the following Read(4)=0x%X", peeked, read)
	}
}

func TestBitopReadPastEndSetsError(t *testing.T) {
	b := createBitop([]byte{0xFF})

	b.Read(8)
	b.Read(8)

	if !b.iserro {
		t.Fatalf("expected iserro after reading past the buffer")
	}
}
