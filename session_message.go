// SessionMessage is the bounded-channel payload the channel directory (and
// a session's own read task) use to talk to a session's out task.

package main

// SessionMessageBufferSize is the channel capacity for a session's message
// queue. Deliberately small: once it fills, the sender blocks, which is the
// only backpressure a fast publisher exerts against a slow player.
const SessionMessageBufferSize = 8

type sessionMessageKind int

const (
	msgPlayStart sessionMessageKind = iota
	msgPlayMetadata
	msgPlayPacket
	msgPlayStop
	msgPause
	msgResume
	msgResumeIdle
	msgInvalidKey
	msgKill
	msgEnd
)

// playStartPayload carries everything a newly-activated player needs:
// current metadata, codec sequence headers, and a snapshot of the GOP cache.
type playStartPayload struct {
	metadata   []byte
	audioCodec uint32
	aacHeader  []byte
	videoCodec uint32
	avcHeader  []byte
	gopCache   []*RTMPPacket
}

// SessionMessage is the tagged union of everything the channel directory
// sends to a player (or publisher) session's out task.
type SessionMessage struct {
	kind sessionMessageKind

	playStart *playStartPayload // msgPlayStart
	resume    *playStartPayload // msgResume (gopCache unused)
	metadata  []byte            // msgPlayMetadata
	packet    *RTMPPacket       // msgPlayPacket
}

func sessionMessagePlayStart(p *playStartPayload) SessionMessage {
	return SessionMessage{kind: msgPlayStart, playStart: p}
}

func sessionMessagePlayMetadata(metadata []byte) SessionMessage {
	return SessionMessage{kind: msgPlayMetadata, metadata: metadata}
}

func sessionMessagePlayPacket(packet *RTMPPacket) SessionMessage {
	return SessionMessage{kind: msgPlayPacket, packet: packet}
}

func sessionMessagePlayStop() SessionMessage {
	return SessionMessage{kind: msgPlayStop}
}

func sessionMessagePause() SessionMessage {
	return SessionMessage{kind: msgPause}
}

func sessionMessageResume(p *playStartPayload) SessionMessage {
	return SessionMessage{kind: msgResume, resume: p}
}

func sessionMessageResumeIdle() SessionMessage {
	return SessionMessage{kind: msgResumeIdle}
}

func sessionMessageInvalidKey() SessionMessage {
	return SessionMessage{kind: msgInvalidKey}
}

func sessionMessageKill() SessionMessage {
	return SessionMessage{kind: msgKill}
}

func sessionMessageEnd() SessionMessage {
	return SessionMessage{kind: msgEnd}
}

// runOutTask is the out task: the only task that writes media bytes to the
// socket. It consumes SessionMessage values until it sees msgEnd (or the
// channel closes), then runs session cleanup exactly once.
func (s *RTMPSession) runOutTask() {
	for m := range s.msgChan {
		switch m.kind {
		case msgPlayStart:
			s.handlePlayStart(m.playStart)
		case msgPlayMetadata:
			s.SendMetadata(m.metadata, 0)
		case msgPlayPacket:
			s.SendCachePacket(m.packet)
		case msgPlayStop:
			s.SendStatusMessage(s.playStreamIDSnapshot(), "status", "NetStream.Play.Stop", "Stopped playing stream.")
		case msgPause:
			s.SendStatusMessage(s.playStreamIDSnapshot(), "status", "NetStream.Pause.Notify", "Paused stream.")
		case msgResume:
			s.handleResume(m.resume)
		case msgResumeIdle:
			s.SendStatusMessage(s.playStreamIDSnapshot(), "status", "NetStream.Unpause.Notify", "Resumed stream.")
		case msgInvalidKey:
			s.SendStatusMessage(s.playStreamIDSnapshot(), "error", "NetStream.Play.BadName", "Invalid stream key provided")
			s.Kill()
		case msgKill:
			s.Kill()
		case msgEnd:
			s.runSessionCleanup()
			s.drainMessages()
			return
		}
	}

	// Channel closed without an explicit End (e.g. a bug upstream); clean
	// up anyway so the channel directory never keeps a dangling entry.
	s.runSessionCleanup()
}

func (s *RTMPSession) drainMessages() {
	for range s.msgChan {
	}
}

func (s *RTMPSession) playStreamIDSnapshot() uint32 {
	s.status.mu.Lock()
	defer s.status.mu.Unlock()
	return s.status.playSID
}

// handlePlayStart converts a PlayStart message into the composite RTMP
// response sequence: stream-begin, Play.Reset, Play.Start, sample-access,
// metadata, audio header, video header, then each cached GOP packet.
func (s *RTMPSession) handlePlayStart(p *playStartPayload) {
	streamID := s.playStreamIDSnapshot()

	s.SendStreamStatus(STREAM_BEGIN, streamID)
	s.SendStatusMessage(streamID, "status", "NetStream.Play.Reset", "Playing and resetting stream.")
	s.SendStatusMessage(streamID, "status", "NetStream.Play.Start", "Started playing stream.")
	s.SendSampleAccess(0)

	if len(p.metadata) > 0 {
		s.SendMetadata(p.metadata, 0)
	}

	s.SendAudioCodecHeader(p.audioCodec, p.aacHeader, 0)
	s.SendVideoCodecHeader(p.videoCodec, p.avcHeader, 0)

	for _, cached := range p.gopCache {
		s.SendCachePacket(cached)
	}
}

func (s *RTMPSession) handleResume(p *playStartPayload) {
	streamID := s.playStreamIDSnapshot()
	s.SendStatusMessage(streamID, "status", "NetStream.Unpause.Notify", "Resumed stream.")
	s.SendAudioCodecHeader(p.audioCodec, p.aacHeader, 0)
	s.SendVideoCodecHeader(p.videoCodec, p.avcHeader, 0)
}
