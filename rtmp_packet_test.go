package main

import "testing"

func TestRtmpChunkBasicHeaderCreateSizes(t *testing.T) {
	cases := []struct {
		cid      uint32
		nBytes   int
	}{
		{3, 1},
		{63, 1},
		{64, 2},
		{318, 2},
		{319, 3},
		{70000, 3},
	}

	for _, c := range cases {
		h := rtmpChunkBasicHeaderCreate(RTMP_CHUNK_TYPE_0, c.cid)
		if len(h) != c.nBytes {
			t.Fatalf("cid %d: expected %d byte header, got %d", c.cid, c.nBytes, len(h))
		}
	}
}

func TestCreateChunksSingleChunk(t *testing.T) {
	payload := []byte("hello world")

	packet := createBlankRTMPPacket()
	packet.header.fmt = RTMP_CHUNK_TYPE_0
	packet.header.cid = RTMP_CHANNEL_AUDIO
	packet.header.packet_type = RTMP_TYPE_AUDIO
	packet.header.length = uint32(len(payload))
	packet.payload = payload

	chunks := packet.CreateChunks(128)

	// basic header (1) + message header (11, fmt 0) + payload
	expectedLen := 1 + 11 + len(payload)
	if len(chunks) != expectedLen {
		t.Fatalf("expected %d bytes, got %d", expectedLen, len(chunks))
	}
}

func TestBuildAckMessageEncodesSize(t *testing.T) {
	b := BuildAckMessage(123456)
	if len(b) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(b))
	}
	got := uint32(b[12])<<24 | uint32(b[13])<<16 | uint32(b[14])<<8 | uint32(b[15])
	if got != 123456 {
		t.Fatalf("expected size 123456, got %d", got)
	}
}

func TestBuildSetPeerBandwidthMessageEncodesLimitType(t *testing.T) {
	b := BuildSetPeerBandwidthMessage(5000000, 2)
	if len(b) != 17 {
		t.Fatalf("expected 17 bytes, got %d", len(b))
	}
	if b[16] != 2 {
		t.Fatalf("expected limit type 2, got %d", b[16])
	}
}

func TestBuildPingRequestMessageIsChunked(t *testing.T) {
	b := BuildPingRequestMessage(42, 128)
	// basic header (1) + message header (11, fmt 0) + 6-byte payload
	if len(b) != 1+11+6 {
		t.Fatalf("expected %d bytes, got %d", 1+11+6, len(b))
	}
}

func TestCreateChunksSplitsAcrossChunkSize(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}

	packet := createBlankRTMPPacket()
	packet.header.fmt = RTMP_CHUNK_TYPE_0
	packet.header.cid = RTMP_CHANNEL_VIDEO
	packet.header.packet_type = RTMP_TYPE_VIDEO
	packet.header.length = uint32(len(payload))
	packet.payload = payload

	outChunkSize := 4
	chunks := packet.CreateChunks(outChunkSize)

	// basic header (1) + message header (11) + 4 payload bytes
	// + 2 continuation chunks, each with a 1-byte type-3 basic header
	basicHeader0 := rtmpChunkBasicHeaderCreate(RTMP_CHUNK_TYPE_0, packet.header.cid)
	basicHeader3 := rtmpChunkBasicHeaderCreate(RTMP_CHUNK_TYPE_3, packet.header.cid)
	messageHeader := rtmpChunkMessageHeaderCreate(&packet)

	expectedLen := len(basicHeader0) + len(messageHeader) + len(payload) + 2*len(basicHeader3)
	if len(chunks) != expectedLen {
		t.Fatalf("expected %d bytes, got %d", expectedLen, len(chunks))
	}
}
