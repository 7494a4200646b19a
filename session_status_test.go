package main

import "testing"

func TestPublishStateGOPCacheEvictsOnOverflow(t *testing.T) {
	ps := newPublishState(10) // 10 bytes total budget

	pkt := func(n int) *RTMPPacket {
		p := createBlankRTMPPacket()
		p.payload = make([]byte, n)
		return &p
	}

	ps.PushPacket(pkt(4))
	ps.PushPacket(pkt(4))

	_, _, _, _, _, gop := ps.Snapshot()
	if len(gop) != 2 {
		t.Fatalf("expected 2 packets before overflow, got %d", len(gop))
	}

	ps.PushPacket(pkt(4)) // now 12 bytes total, over the 10-byte budget

	_, _, _, _, _, gop = ps.Snapshot()
	if len(gop) != 2 {
		t.Fatalf("expected the oldest packet to be evicted, leaving 2, got %d", len(gop))
	}
}

func TestPublishStateVideoHeaderClearsGOP(t *testing.T) {
	ps := newPublishState(1024)

	p := createBlankRTMPPacket()
	p.payload = []byte{1, 2, 3}
	ps.PushPacket(&p)

	_, _, _, _, _, gop := ps.Snapshot()
	if len(gop) != 1 {
		t.Fatalf("expected 1 cached packet, got %d", len(gop))
	}

	ps.SetVideoHeader(7, []byte{0x17, 0x00, 0x00, 0x00, 0x00})

	_, _, _, _, _, gop = ps.Snapshot()
	if len(gop) != 0 {
		t.Fatalf("expected a new video sequence header to clear the GOP cache, got %d packets", len(gop))
	}
}

func TestPublishStateSnapshotIsIndependentOfFutureWrites(t *testing.T) {
	ps := newPublishState(1024)

	p := createBlankRTMPPacket()
	p.payload = []byte{1}
	ps.PushPacket(&p)

	_, _, _, _, _, gop := ps.Snapshot()

	p2 := createBlankRTMPPacket()
	p2.payload = []byte{2}
	ps.PushPacket(&p2)

	if len(gop) != 1 {
		t.Fatalf("expected the earlier snapshot to stay at length 1, got %d", len(gop))
	}
}

func TestSessionStatusRoleTransitions(t *testing.T) {
	s := newSessionStatus()

	if s.HasRole() {
		t.Fatalf("expected no role initially")
	}

	s.SetPublisher("stream-1", "key1", 1)
	if !s.IsPublisher() {
		t.Fatalf("expected publisher role after SetPublisher")
	}
	if s.IsPlayer() {
		t.Fatalf("did not expect player role after SetPublisher")
	}

	s.ClearRole()
	if s.HasRole() {
		t.Fatalf("expected no role after ClearRole")
	}

	s.SetPlayer("key1", 2)
	if !s.IsPlayer() {
		t.Fatalf("expected player role after SetPlayer")
	}
}
