package main

import "testing"

func recvMessage(t *testing.T, ch chan SessionMessage) SessionMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	default:
		t.Fatalf("expected a message on the channel, got none")
		return SessionMessage{}
	}
}

func TestChannelDirectoryPublishThenPlay(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)

	if !d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh) {
		t.Fatalf("expected first publisher to be accepted")
	}

	if !d.IsPublishing("chan1") {
		t.Fatalf("expected channel to report publishing")
	}

	playCh := make(chan SessionMessage, SessionMessageBufferSize)
	if !d.AddPlayer("chan1", "secret", 2, AddPlayerOptions{ReceiveAudio: true, ReceiveVideo: true}, playCh) {
		t.Fatalf("expected player with the correct key to be accepted")
	}

	m := recvMessage(t, playCh)
	if m.kind != msgPlayStart {
		t.Fatalf("expected a PlayStart message, got kind %d", m.kind)
	}
}

func TestChannelDirectoryRejectsWrongKey(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh)

	playCh := make(chan SessionMessage, SessionMessageBufferSize)
	if d.AddPlayer("chan1", "wrong-key", 2, AddPlayerOptions{}, playCh) {
		t.Fatalf("expected player with the wrong key to be rejected")
	}
}

func TestChannelDirectoryRejectsSecondPublisher(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	ps1 := newPublishState(1024 * 1024)
	pubCh1 := make(chan SessionMessage, SessionMessageBufferSize)
	if !d.SetPublisher("chan1", "secret", "stream-1", 1, ps1, pubCh1) {
		t.Fatalf("expected first publisher to be accepted")
	}

	ps2 := newPublishState(1024 * 1024)
	pubCh2 := make(chan SessionMessage, SessionMessageBufferSize)
	if d.SetPublisher("chan1", "secret", "stream-2", 2, ps2, pubCh2) {
		t.Fatalf("expected second publisher on the same channel to be rejected")
	}
}

func TestChannelDirectoryIdlePlayerWokenByLatePublisher(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	playCh := make(chan SessionMessage, SessionMessageBufferSize)
	if !d.AddPlayer("chan1", "secret", 2, AddPlayerOptions{}, playCh) {
		t.Fatalf("expected idle player (no publisher yet) to be accepted")
	}

	select {
	case <-playCh:
		t.Fatalf("did not expect a message before a publisher connects")
	default:
	}

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh)

	m := recvMessage(t, playCh)
	if m.kind != msgPlayStart {
		t.Fatalf("expected the idle player to receive PlayStart once the publisher connects, got kind %d", m.kind)
	}
}

func TestChannelDirectoryIdlePlayerEvictedOnWrongKeyAtPublish(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	playCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.AddPlayer("chan1", "wrong-key", 2, AddPlayerOptions{}, playCh)

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh)

	m := recvMessage(t, playCh)
	if m.kind != msgInvalidKey {
		t.Fatalf("expected the idle player with the wrong key to be evicted, got kind %d", m.kind)
	}
}

func TestChannelDirectoryRemovePublisherNotifiesPlayers(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh)

	playCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.AddPlayer("chan1", "secret", 2, AddPlayerOptions{}, playCh)
	<-playCh // drain the PlayStart

	d.RemovePublisher("chan1", 1)

	m := recvMessage(t, playCh)
	if m.kind != msgPlayStop {
		t.Fatalf("expected PlayStop after publisher departs, got kind %d", m.kind)
	}
	if d.IsPublishing("chan1") {
		t.Fatalf("expected channel to no longer be publishing")
	}
}

func TestChannelDirectoryTryClearChannelOnlyWhenEmpty(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh)

	d.TryClearChannel("chan1")
	if !d.IsPublishing("chan1") {
		t.Fatalf("expected non-empty channel to survive TryClearChannel")
	}

	d.RemovePublisher("chan1", 1)
	d.TryClearChannel("chan1")

	if _, ok := d.get("chan1"); ok {
		t.Fatalf("expected empty channel to be removed by TryClearChannel")
	}
}

func TestChannelDirectorySendPacketFiltersByReceiveFlags(t *testing.T) {
	d := NewChannelDirectory(1024*1024, nil)

	ps := newPublishState(1024 * 1024)
	pubCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.SetPublisher("chan1", "secret", "stream-1", 1, ps, pubCh)

	playCh := make(chan SessionMessage, SessionMessageBufferSize)
	d.AddPlayer("chan1", "secret", 2, AddPlayerOptions{ReceiveAudio: false, ReceiveVideo: true}, playCh)
	<-playCh // drain PlayStart

	audioPacket := createBlankRTMPPacket()
	audioPacket.header.packet_type = RTMP_TYPE_AUDIO
	audioPacket.payload = []byte{0x01}

	d.SendPacket("chan1", 1, &audioPacket, false)

	select {
	case <-playCh:
		t.Fatalf("expected an audio packet to be filtered out for a player with ReceiveAudio=false")
	default:
	}

	videoPacket := createBlankRTMPPacket()
	videoPacket.header.packet_type = RTMP_TYPE_VIDEO
	videoPacket.payload = []byte{0x02}

	d.SendPacket("chan1", 1, &videoPacket, false)

	m := recvMessage(t, playCh)
	if m.kind != msgPlayPacket {
		t.Fatalf("expected a video packet to reach a player with ReceiveVideo=true, got kind %d", m.kind)
	}
}
