package main

import "testing"

func TestAMF3UI29RoundTrip(t *testing.T) {
	cases := []struct {
		val   uint32
		nByte int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1FFFFF, 3},
		{0x200000, 4},
		{0x3FFFFFFF, 4},
	}

	for _, c := range cases {
		encoded := amf3encUI29(c.val)
		if len(encoded) != c.nByte {
			t.Fatalf("value %#x: expected %d bytes, got %d", c.val, c.nByte, len(encoded))
		}

		s := &AMFDecodingStream{buffer: encoded}
		got := s.amf3decUI29()
		if got != c.val {
			t.Fatalf("value %#x: round-tripped to %#x", c.val, got)
		}
		if !s.IsEnded() {
			t.Fatalf("value %#x: decoder left %d unread bytes", c.val, len(encoded)-s.pos)
		}
	}
}

func TestAMF3StringRoundTrip(t *testing.T) {
	v := createAMF3Value(AMF3_TYPE_STRING)
	v.str_val = "some/channel/name"

	b := amf3EncodeOne(v)
	s := &AMFDecodingStream{buffer: b}
	out := s.ReadAMF3()

	if out.str_val != "some/channel/name" {
		t.Fatalf("expected round-tripped string, got %q", out.str_val)
	}
}

func TestAMF3EmptyStringRoundTrip(t *testing.T) {
	v := createAMF3Value(AMF3_TYPE_STRING)
	v.str_val = ""

	b := amf3EncodeOne(v)
	s := &AMFDecodingStream{buffer: b}
	out := s.ReadAMF3()

	if out.str_val != "" {
		t.Fatalf("expected empty string, got %q", out.str_val)
	}
}

func TestAMF3ByteArrayRoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0xff}

	v := createAMF3Value(AMF3_TYPE_BYTE_ARRAY)
	v.bytes_val = data

	b := amf3EncodeOne(v)
	s := &AMFDecodingStream{buffer: b}
	out := s.ReadAMF3()

	if len(out.bytes_val) != len(data) {
		t.Fatalf("expected %d bytes, got %d", len(data), len(out.bytes_val))
	}
	for i := range data {
		if out.bytes_val[i] != data[i] {
			t.Fatalf("byte %d mismatch: expected %#x got %#x", i, data[i], out.bytes_val[i])
		}
	}
}

func TestAMF3IntegerRoundTrip(t *testing.T) {
	v := createAMF3Value(AMF3_TYPE_INTEGER)
	v.int_val = 123456

	b := amf3EncodeOne(v)
	s := &AMFDecodingStream{buffer: b}
	out := s.ReadAMF3()

	if out.int_val != 123456 {
		t.Fatalf("expected 123456, got %d", out.int_val)
	}
}

// A string immediately followed by another value must not consume bytes
// belonging to the next value: this is exactly the failure mode of the
// historical length<<1-without-inline-bit encoding bug.
func TestAMF3StringDoesNotOverrunFollowingValue(t *testing.T) {
	first := amf3EncodeString("abc")
	second := amf3EncodeString("xyz")

	buf := append(append([]byte{}, first...), second...)

	s := &AMFDecodingStream{buffer: buf}
	got1 := s.ReadAMF3String()
	got2 := s.ReadAMF3String()

	if got1 != "abc" || got2 != "xyz" {
		t.Fatalf("expected 'abc','xyz', got %q,%q", got1, got2)
	}
	if !s.IsEnded() {
		t.Fatalf("decoder left unread bytes")
	}
}
