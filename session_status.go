// Session status: the mutable state shared between a session's read task,
// out task and the channel directory.

package main

import "sync"

type sessionRole int

const (
	roleNone sessionRole = iota
	rolePublisher
	rolePlayer
)

// SessionStatus holds the fields that both the read task (writer) and the
// out task (reader, during cleanup) need to see. It is never held while a
// channel-record lock is held, and never held while sending on a session
// message channel, per the locking discipline: directory/channel locks are
// always released before a session lock is taken.
type SessionStatus struct {
	mu sync.Mutex

	channel     string
	key         string
	streamID    string
	role        sessionRole
	publishSID  uint32
	playSID     uint32
	streams     uint32
	receiveAudio bool
	receiveVideo bool
	paused      bool
}

func newSessionStatus() *SessionStatus {
	return &SessionStatus{receiveAudio: true, receiveVideo: true}
}

func (s *SessionStatus) GetChannel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *SessionStatus) SetChannel(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = channel
}

func (s *SessionStatus) IsPublisher() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role == rolePublisher
}

func (s *SessionStatus) IsPlayer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role == rolePlayer
}

func (s *SessionStatus) HasRole() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role != roleNone
}

// SetPublisher marks the session as the publisher of its channel, bound to
// the given RTMP stream id and the key it authenticated with.
func (s *SessionStatus) SetPublisher(streamID string, key string, publishSID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = rolePublisher
	s.streamID = streamID
	s.key = key
	s.publishSID = publishSID
}

// SetPlayer marks the session as a player, bound to the given RTMP stream id.
func (s *SessionStatus) SetPlayer(key string, playSID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = rolePlayer
	s.key = key
	s.playSID = playSID
}

func (s *SessionStatus) ClearRole() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = roleNone
}

func (s *SessionStatus) Snapshot() (channel string, key string, streamID string, role sessionRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel, s.key, s.streamID, s.role
}

func (s *SessionStatus) NextStreamIndex() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams++
	return s.streams
}

func (s *SessionStatus) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *SessionStatus) SetReceiveAudio(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiveAudio = v
}

func (s *SessionStatus) SetReceiveVideo(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiveVideo = v
}

// PublishState is the latched codec/metadata/GOP state shared between a
// publishing session and its channel record. It lives from `publish` to
// publisher departure.
type PublishState struct {
	mu sync.Mutex

	audioCodec        uint32
	aacSequenceHeader []byte

	videoCodec        uint32
	avcSequenceHeader []byte

	metadata []byte

	gopCache        []*RTMPPacket
	gopCacheSize    uint64
	gopCacheLimit   uint64
	gopCacheCleared bool
}

func newPublishState(gopCacheLimitBytes uint64) *PublishState {
	return &PublishState{gopCacheLimit: gopCacheLimitBytes}
}

// PushPacket appends a non-header media packet to the GOP cache, evicting
// from the front while the cache exceeds its byte budget.
func (p *PublishState) PushPacket(packet *RTMPPacket) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gopCache = append(p.gopCache, packet)
	p.gopCacheSize += uint64(len(packet.payload))

	for p.gopCacheSize > p.gopCacheLimit && len(p.gopCache) > 0 {
		evicted := p.gopCache[0]
		p.gopCache = p.gopCache[1:]
		p.gopCacheSize -= uint64(len(evicted.payload))
	}
}

// ClearGOP empties the cache. Called whenever a new video sequence header
// is latched.
func (p *PublishState) ClearGOP() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gopCache = nil
	p.gopCacheSize = 0
}

func (p *PublishState) SetAudioHeader(codec uint32, header []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audioCodec = codec
	p.aacSequenceHeader = header
}

func (p *PublishState) SetVideoHeader(codec uint32, header []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videoCodec = codec
	p.avcSequenceHeader = header
	p.gopCache = nil
	p.gopCacheSize = 0
}

func (p *PublishState) SetMetadata(metadata []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata = metadata
}

// Snapshot returns a shallow copy of everything a newly-activated player
// needs for its PlayStart message. The GOP cache slice is a copy of the
// slice header only: the underlying *RTMPPacket values are immutable once
// published and are shared, not deep-copied, across every player.
func (p *PublishState) Snapshot() (metadata []byte, audioCodec uint32, aacHeader []byte, videoCodec uint32, avcHeader []byte, gop []*RTMPPacket) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gopCopy := make([]*RTMPPacket, len(p.gopCache))
	copy(gopCopy, p.gopCache)

	return p.metadata, p.audioCodec, p.aacSequenceHeader, p.videoCodec, p.avcSequenceHeader, gopCopy
}

func (p *PublishState) ResumeHeaders() (audioCodec uint32, aacHeader []byte, videoCodec uint32, avcHeader []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioCodec, p.aacSequenceHeader, p.videoCodec, p.avcSequenceHeader
}
