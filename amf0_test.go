package main

import "testing"

func encodeDecodeAMF0(t *testing.T, val AMF0Value) AMF0Value {
	t.Helper()
	b := amf0EncodeOne(val)
	s := &AMFDecodingStream{buffer: b}
	return s.ReadOne()
}

func TestAMF0NumberRoundTrip(t *testing.T) {
	v := createAMF0Value(AMF0_TYPE_NUMBER)
	v.SetFloatVal(3.5)

	out := encodeDecodeAMF0(t, v)
	if out.GetDouble() != 3.5 {
		t.Fatalf("expected 3.5, got %v", out.GetDouble())
	}
}

func TestAMF0StringRoundTrip(t *testing.T) {
	v := createAMF0Value(AMF0_TYPE_STRING)
	v.str_val = "live/stream1"

	out := encodeDecodeAMF0(t, v)
	if out.GetString() != "live/stream1" {
		t.Fatalf("expected 'live/stream1', got %q", out.GetString())
	}
}

func TestAMF0BoolRoundTrip(t *testing.T) {
	v := createAMF0Value(AMF0_TYPE_BOOL)
	v.bool_val = true

	out := encodeDecodeAMF0(t, v)
	if !out.GetBool() {
		t.Fatalf("expected true")
	}
}

func TestAMF0ObjectRoundTrip(t *testing.T) {
	app := createAMF0Value(AMF0_TYPE_STRING)
	app.str_val = "live"

	objEncoding := createAMF0Value(AMF0_TYPE_NUMBER)
	objEncoding.SetFloatVal(0)

	obj := map[string]*AMF0Value{
		"app":            &app,
		"objectEncoding": &objEncoding,
	}

	v := createAMF0Value(AMF0_TYPE_OBJECT)
	v.obj_val = obj

	out := encodeDecodeAMF0(t, v)
	got := out.GetObject()

	if got["app"].GetString() != "live" {
		t.Fatalf("expected app='live', got %q", got["app"].GetString())
	}
	if got["objectEncoding"].GetDouble() != 0 {
		t.Fatalf("expected objectEncoding=0, got %v", got["objectEncoding"].GetDouble())
	}
}

func TestAMF0DecodeTruncatedString(t *testing.T) {
	// Type byte for string, length prefix claims 10 bytes, only 2 supplied.
	b := []byte{AMF0_TYPE_STRING, 0x00, 0x0a, 'h', 'i'}
	s := &AMFDecodingStream{buffer: b}

	s.ReadOne()

	if s.Err() == nil {
		t.Fatalf("expected a truncation error")
	}
}

func TestAMF0DecodeTruncatedObjectDoesNotPanic(t *testing.T) {
	// Object header with no terminator and no bytes left for a key.
	b := []byte{AMF0_TYPE_OBJECT, 0x00}
	s := &AMFDecodingStream{buffer: b}

	s.ReadOne()

	if s.Err() == nil {
		t.Fatalf("expected a truncation error")
	}
}

func TestAMF0DecodeValidPayloadHasNoError(t *testing.T) {
	v := createAMF0Value(AMF0_TYPE_STRING)
	v.str_val = "ok"
	b := amf0EncodeOne(v)

	s := &AMFDecodingStream{buffer: b}
	s.ReadOne()

	if s.Err() != nil {
		t.Fatalf("unexpected error: %v", s.Err())
	}
}

func TestAMF0StrictArrayRoundTrip(t *testing.T) {
	a := createAMF0Value(AMF0_TYPE_NUMBER)
	a.SetFloatVal(1)
	b := createAMF0Value(AMF0_TYPE_NUMBER)
	b.SetFloatVal(2)

	v := createAMF0Value(AMF0_TYPE_STRICT_ARRAY)
	v.array_val = []*AMF0Value{&a, &b}

	out := encodeDecodeAMF0(t, v)
	arr := out.GetArray()

	if len(arr) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(arr))
	}
	if arr[0].GetDouble() != 1 || arr[1].GetDouble() != 2 {
		t.Fatalf("unexpected array contents: %v %v", arr[0].GetDouble(), arr[1].GetDouble())
	}
}
