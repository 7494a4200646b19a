// Channel directory: the process-wide map from channel name to a Channel
// record, each record independently locked. The directory lock is held
// only long enough to look up (or create) a record; every subsequent
// mutation happens under that record's own lock, never under the
// directory lock, so that fan-out on one channel never contends with
// publish/play on another.

package main

import "sync"

// PlayerRecord is a single player's entry inside a ChannelRecord.
type PlayerRecord struct {
	sessionID    uint64
	providedKey  string
	gopClear     bool
	paused       bool
	idle         bool
	receiveAudio bool
	receiveVideo bool
	sender       chan<- SessionMessage
}

// ChannelRecord is the per-channel state: at most one publisher, any
// number of players.
type ChannelRecord struct {
	mu sync.Mutex

	name string

	publishing         bool
	publisherSessionID uint64
	publisherKey       string
	streamID           string
	publishState       *PublishState
	publisherSender    chan<- SessionMessage

	players map[uint64]*PlayerRecord
}

func newChannelRecord(name string) *ChannelRecord {
	return &ChannelRecord{name: name, players: make(map[uint64]*PlayerRecord)}
}

func (c *ChannelRecord) isEmpty() bool {
	return !c.publishing && len(c.players) == 0
}

// ChannelDirectory is the process-wide channel map.
type ChannelDirectory struct {
	mu           sync.Mutex
	channels     map[string]*ChannelRecord
	gopCacheSize uint64
	keyValidator KeyValidator
}

func NewChannelDirectory(gopCacheSizeLimitBytes uint64, keyValidator KeyValidator) *ChannelDirectory {
	return &ChannelDirectory{
		channels:     make(map[string]*ChannelRecord),
		gopCacheSize: gopCacheSizeLimitBytes,
		keyValidator: keyValidator,
	}
}

// getOrCreate returns the record for name, creating it if absent. The
// directory lock is released as soon as the record pointer is obtained.
func (d *ChannelDirectory) getOrCreate(name string) *ChannelRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.channels[name]
	if !ok {
		c = newChannelRecord(name)
		d.channels[name] = c
	}
	return c
}

// get returns the record for name if it exists, without creating it.
func (d *ChannelDirectory) get(name string) (*ChannelRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.channels[name]
	return c, ok
}

// IsPublishing reports whether channel currently has an active publisher.
func (d *ChannelDirectory) IsPublishing(channel string) bool {
	c, ok := d.get(channel)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publishing
}

// SetPublisher registers sessionID as the publisher of channel. Fails if the
// channel already has an active publisher. On success, wakes every idle
// player whose provided key matches (constant-time compare); idle players
// whose key does not match are evicted with InvalidKey.
func (d *ChannelDirectory) SetPublisher(channel, key, streamID string, sessionID uint64, publishState *PublishState, sender chan<- SessionMessage) bool {
	c := d.getOrCreate(channel)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.publishing {
		return false
	}

	c.publishing = true
	c.publisherSessionID = sessionID
	c.publisherKey = key
	c.streamID = streamID
	c.publishState = publishState
	c.publisherSender = sender

	for id, p := range c.players {
		if !p.idle {
			continue
		}

		if SecureCompareStrings(p.providedKey, key) {
			p.idle = false
			metadata, audioCodec, aacHeader, videoCodec, avcHeader, gop := publishState.Snapshot()
			if p.gopClear {
				gop = nil
			}
			sendSessionMessage(p.sender, sessionMessagePlayStart(&playStartPayload{
				metadata:   metadata,
				audioCodec: audioCodec,
				aacHeader:  aacHeader,
				videoCodec: videoCodec,
				avcHeader:  avcHeader,
				gopCache:   gop,
			}))
		} else {
			sendSessionMessage(p.sender, sessionMessageInvalidKey())
			delete(c.players, id)
		}
	}

	return true
}

// RemovePublisher unpublishes channel if sessionID is its current
// publisher. All players receive PlayStop and the key validator is told
// the publication ended.
func (d *ChannelDirectory) RemovePublisher(channel string, sessionID uint64) {
	c, ok := d.get(channel)
	if !ok {
		return
	}

	c.mu.Lock()

	if !c.publishing || c.publisherSessionID != sessionID {
		c.mu.Unlock()
		return
	}

	streamID := c.streamID

	for _, p := range c.players {
		p.idle = true
		sendSessionMessage(p.sender, sessionMessagePlayStop())
	}

	c.publishing = false
	c.publisherSessionID = 0
	c.publisherKey = ""
	c.streamID = ""
	c.publishState = nil
	c.publisherSender = nil

	c.mu.Unlock()

	if d.keyValidator != nil {
		go d.keyValidator.PublishEnd(channel, streamID)
	}
}

// KillPublisher sends Kill to channel's current publisher and unpublishes
// it. If streamID is non-empty it must match the current publication.
func (d *ChannelDirectory) KillPublisher(channel string, streamID string) {
	c, ok := d.get(channel)
	if !ok {
		return
	}

	c.mu.Lock()

	if !c.publishing {
		c.mu.Unlock()
		return
	}

	if streamID != "" && c.streamID != streamID {
		c.mu.Unlock()
		return
	}

	sessionID := c.publisherSessionID
	sender := c.publisherSender

	c.mu.Unlock()

	if sender != nil {
		sendSessionMessage(sender, sessionMessageKill())
	}

	d.RemovePublisher(channel, sessionID)
}

// RemoveAllPublishers kills every active publisher across every channel.
// Used after a controller reconnect, where the controller is the sole
// authority on who is allowed to publish while connected.
func (d *ChannelDirectory) RemoveAllPublishers() {
	d.mu.Lock()
	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	d.mu.Unlock()

	for _, name := range names {
		d.KillPublisher(name, "")
		d.TryClearChannel(name)
	}
}

// AddPlayerOptions mirrors the `play` command's query-string options.
type AddPlayerOptions struct {
	GopClear     bool
	ReceiveAudio bool
	ReceiveVideo bool
}

// AddPlayer registers sessionID as a player of channel. If a publisher is
// present, its key must match (constant-time compare) or the player is
// rejected outright; if no publisher is present yet, the player is
// inserted idle and woken later by SetPublisher.
func (d *ChannelDirectory) AddPlayer(channel, key string, sessionID uint64, opts AddPlayerOptions, sender chan<- SessionMessage) bool {
	c := d.getOrCreate(channel)

	c.mu.Lock()
	defer c.mu.Unlock()

	record := &PlayerRecord{
		sessionID:    sessionID,
		providedKey:  key,
		gopClear:     opts.GopClear,
		receiveAudio: opts.ReceiveAudio,
		receiveVideo: opts.ReceiveVideo,
		sender:       sender,
	}

	if !c.publishing {
		record.idle = true
		c.players[sessionID] = record
		return true
	}

	if !SecureCompareStrings(key, c.publisherKey) {
		return false
	}

	record.idle = false
	c.players[sessionID] = record

	metadata, audioCodec, aacHeader, videoCodec, avcHeader, gop := c.publishState.Snapshot()
	if opts.GopClear {
		gop = nil
	}

	sendSessionMessage(sender, sessionMessagePlayStart(&playStartPayload{
		metadata:   metadata,
		audioCodec: audioCodec,
		aacHeader:  aacHeader,
		videoCodec: videoCodec,
		avcHeader:  avcHeader,
		gopCache:   gop,
	}))

	return true
}

// RemovePlayer removes sessionID from channel's player set, if present.
func (d *ChannelDirectory) RemovePlayer(channel string, sessionID uint64) {
	c, ok := d.get(channel)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, sessionID)
}

// TryClearChannel removes the channel record iff it has no publisher and
// no players.
func (d *ChannelDirectory) TryClearChannel(channel string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.channels[channel]
	if !ok {
		return
	}

	c.mu.Lock()
	empty := c.isEmpty()
	c.mu.Unlock()

	if empty {
		delete(d.channels, channel)
	}
}

// SendPacket fans a media packet out to every eligible player of channel,
// guarded by publisher-identity (only the current publisher may send).
// Non-header packets are appended to the GOP cache; a new video sequence
// header clears it. The PublishState lock (taken by PushPacket/
// SetAudioHeader/SetVideoHeader) is always released before any per-player
// send, per the locking discipline.
func (d *ChannelDirectory) SendPacket(channel string, publisherSessionID uint64, packet *RTMPPacket, isHeader bool) {
	c, ok := d.get(channel)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.publishing || c.publisherSessionID != publisherSessionID {
		return
	}

	if !isHeader {
		c.publishState.PushPacket(packet)
	}

	isAudio := packet.header.packet_type == RTMP_TYPE_AUDIO
	isVideo := packet.header.packet_type == RTMP_TYPE_VIDEO

	for _, p := range c.players {
		if p.idle || p.paused {
			continue
		}
		if isAudio && !p.receiveAudio {
			continue
		}
		if isVideo && !p.receiveVideo {
			continue
		}
		sendSessionMessage(p.sender, sessionMessagePlayPacket(packet))
	}
}

// SetMetadata latches metadata in the channel's PublishState and broadcasts
// it to every player, regardless of pause/receive filters.
func (d *ChannelDirectory) SetMetadata(channel string, publisherSessionID uint64, metadata []byte) {
	c, ok := d.get(channel)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.publishing || c.publisherSessionID != publisherSessionID {
		return
	}

	c.publishState.SetMetadata(metadata)

	for _, p := range c.players {
		if p.idle {
			continue
		}
		sendSessionMessage(p.sender, sessionMessagePlayMetadata(metadata))
	}
}

// PlayerPause marks sessionID's player record as paused and notifies it.
func (d *ChannelDirectory) PlayerPause(channel string, sessionID uint64) {
	c, ok := d.get(channel)
	if !ok {
		return
	}

	c.mu.Lock()
	p, exists := c.players[sessionID]
	if exists {
		p.paused = true
	}
	c.mu.Unlock()

	if exists {
		sendSessionMessage(p.sender, sessionMessagePause())
	}
}

// PlayerResume clears sessionID's paused flag. If the channel is currently
// publishing, the player receives a Resume carrying the latest sequence
// headers so its decoder can realign without waiting for a keyframe;
// otherwise it receives ResumeIdle.
func (d *ChannelDirectory) PlayerResume(channel string, sessionID uint64) {
	c, ok := d.get(channel)
	if !ok {
		return
	}

	c.mu.Lock()
	p, exists := c.players[sessionID]
	if !exists {
		c.mu.Unlock()
		return
	}
	p.paused = false

	if c.publishing {
		audioCodec, aacHeader, videoCodec, avcHeader := c.publishState.ResumeHeaders()
		sender := p.sender
		c.mu.Unlock()
		sendSessionMessage(sender, sessionMessageResume(&playStartPayload{
			audioCodec: audioCodec,
			aacHeader:  aacHeader,
			videoCodec: videoCodec,
			avcHeader:  avcHeader,
		}))
		return
	}

	sender := p.sender
	c.mu.Unlock()
	sendSessionMessage(sender, sessionMessageResumeIdle())
}

func (d *ChannelDirectory) PlayerSetReceiveAudio(channel string, sessionID uint64, v bool) {
	c, ok := d.get(channel)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, exists := c.players[sessionID]; exists {
		p.receiveAudio = v
	}
}

func (d *ChannelDirectory) PlayerSetReceiveVideo(channel string, sessionID uint64, v bool) {
	c, ok := d.get(channel)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, exists := c.players[sessionID]; exists {
		p.receiveVideo = v
	}
}

// sendSessionMessage delivers m to a session's out task. It never runs
// while the directory lock is held: every caller above has already
// released ChannelDirectory.mu before reaching here. Some callers (the
// fan-out loops in SetPublisher/SendPacket/SetMetadata) do hold the
// channel record's own lock across the send, trading it for in-order
// delivery; see the locking discipline note in DESIGN.md. The channel's
// capacity-8 buffer is the only backpressure: a slow player can make this
// call block, and a publisher send can in turn block behind it.
func sendSessionMessage(ch chan<- SessionMessage, m SessionMessage) {
	defer func() { _ = recover() }() // the receiver may have already closed its channel on exit
	ch <- m
}
