// RTMP invoke command handlers: connect, createStream, publish, play,
// pause, deleteStream, closeStream, plus the audio/video packet handlers
// that feed the channel directory.

package main

import (
	"strconv"
	"strings"
	"time"
)

func (s *RTMPSession) HandleConnect(cmd *RTMPCommand) bool {
	channel := cmd.GetArg("cmdObj").GetProperty("app").GetString()

	if !ValidateIDString(channel, s.server.config.idValidationConfig()) {
		LogRequest(s.id, s.ip, "INVALID CHANNEL '"+channel+"'")
		return false
	}

	s.status.SetChannel(channel)

	s.objectEncoding = uint32(cmd.GetArg("cmdObj").GetProperty("objectEncoding").GetInteger())
	s.connectTime = time.Now().UnixMilli()
	s.bitRateCache = BitRateCache{intervalMs: 1000, lastUpdate: s.connectTime}
	s.isConnected = true

	transId := cmd.GetArg("transId").GetInteger()

	LogRequest(s.id, s.ip, "CONNECT '"+channel+"'")

	s.SendWindowACK(5000000)
	s.SetPeerBandwidth(5000000, 2)
	s.SetChunkSize(s.outChunkSize)
	s.RespondConnect(transId, !cmd.GetArg("cmdObj").GetProperty("objectEncoding").IsUndefined())

	return true
}

func (s *RTMPSession) HandleCreateStream(cmd *RTMPCommand) bool {
	transId := cmd.GetArg("transId").GetInteger()
	s.RespondCreateStream(transId)
	return true
}

func (s *RTMPSession) HandlePublish(cmd *RTMPCommand, packet *RTMPPacket) bool {
	streamPath := cmd.GetArg("streamName").GetString()
	key := strings.SplitN(streamPath, "?", 2)[0]

	if key == "" || !s.isConnected {
		return true
	}

	if !ValidateIDString(key, s.server.config.idValidationConfig()) {
		s.SendStatusMessage(packet.header.stream_id, "error", "NetStream.Publish.BadName", "Invalid stream key provided")
		return false
	}

	channel := s.status.GetChannel()
	publishSID := packet.header.stream_id

	if s.status.HasRole() {
		s.SendStatusMessage(publishSID, "error", "NetStream.Publish.BadConnection", "Connection already publishing")
		return true
	}

	if s.server.channels.IsPublishing(channel) {
		s.SendStatusMessage(publishSID, "error", "NetStream.Publish.BadName", "Stream already publishing")
		return false
	}

	LogRequest(s.id, s.ip, "PUBLISH ("+strconv.Itoa(int(publishSID))+") '"+channel+"'")

	streamID, ok := s.server.validatePublish(channel, key, s.ip)
	if !ok {
		LogRequest(s.id, s.ip, "Error: Invalid streaming key provided")
		s.SendStatusMessage(publishSID, "error", "NetStream.Publish.BadName", "Invalid stream key provided")
		return false
	}

	s.status.SetPublisher(streamID, key, publishSID)
	s.publishState = newPublishState(s.server.config.GOPCacheLimitBytes)

	if !s.server.channels.SetPublisher(channel, key, streamID, s.id, s.publishState, s.msgChan) {
		s.SendStatusMessage(publishSID, "error", "NetStream.Publish.BadName", "Stream already publishing")
		s.status.ClearRole()
		return false
	}

	s.SendStatusMessage(publishSID, "status", "NetStream.Publish.Start", s.GetStreamPath()+" is now published.")

	return true
}

func (s *RTMPSession) HandlePlay(cmd *RTMPCommand, packet *RTMPPacket) bool {
	streamPath := cmd.GetArg("streamName").GetString()
	parts := strings.SplitN(streamPath, "?", 2)
	key := parts[0]

	opts := AddPlayerOptions{ReceiveAudio: true, ReceiveVideo: true}
	if len(parts) > 1 {
		params := ParseQueryStringSimple(parts[1])
		opts.GopClear = params["cache"] == "clear" || params["cache"] == "no"
	}

	if key == "" || !s.isConnected {
		return true
	}

	playSID := packet.header.stream_id

	if s.status.HasRole() {
		s.SendStatusMessage(playSID, "error", "NetStream.Play.BadConnection", "Connection already playing")
		return true
	}

	if !s.CanPlay() {
		s.SendStatusMessage(playSID, "error", "NetStream.Play.BadName", "Your net address is not whitelisted for playing")
		return false
	}

	channel := s.status.GetChannel()
	LogRequest(s.id, s.ip, "PLAY ("+strconv.Itoa(int(playSID))+") '"+channel+"'")

	s.status.SetPlayer(key, playSID)
	s.status.SetReceiveAudio(true)
	s.status.SetReceiveVideo(true)

	if !s.server.channels.AddPlayer(channel, key, s.id, opts, s.msgChan) {
		LogRequest(s.id, s.ip, "Error: Invalid streaming key provided")
		s.SendStatusMessage(playSID, "error", "NetStream.Play.BadName", "Invalid stream key provided")
		s.status.ClearRole()
		return false
	}

	return true
}

func (s *RTMPSession) HandlePause(cmd *RTMPCommand) bool {
	if !s.status.IsPlayer() {
		return true
	}

	channel := s.status.GetChannel()
	paused := cmd.GetArg("pause").GetBool()
	s.status.SetPaused(paused)

	if paused {
		s.server.channels.PlayerPause(channel, s.id)
		LogRequest(s.id, s.ip, "PAUSE '"+channel+"'")
	} else {
		s.server.channels.PlayerResume(channel, s.id)
		LogRequest(s.id, s.ip, "RESUME '"+channel+"'")
	}

	return true
}

func (s *RTMPSession) HandleDeleteStream(cmd *RTMPCommand) bool {
	streamID := uint32(cmd.GetArg("streamId").GetInteger())
	s.DeleteStream(streamID)
	return true
}

func (s *RTMPSession) HandleCloseStream(cmd *RTMPCommand, packet *RTMPPacket) bool {
	streamID := createAMF0Value(AMF0_TYPE_NUMBER)
	streamID.SetIntegerVal(int64(packet.header.stream_id))
	cmd.arguments["streamId"] = &streamID
	return s.HandleDeleteStream(cmd)
}

// DeleteStream ends whichever role is bound to streamID (play or publish).
func (s *RTMPSession) DeleteStream(streamID uint32) {
	_, _, _, role := s.status.Snapshot()

	switch role {
	case rolePlayer:
		channel := s.status.GetChannel()
		LogRequest(s.id, s.ip, "PLAY STOP '"+channel+"'")
		s.server.channels.RemovePlayer(channel, s.id)
		s.server.channels.TryClearChannel(channel)
		s.SendStatusMessage(streamID, "status", "NetStream.Play.Stop", "Stopped playing stream.")
		s.status.ClearRole()
	case rolePublisher:
		channel, _, streamIDStr, _ := s.status.Snapshot()
		LogRequest(s.id, s.ip, "PUBLISH END '"+channel+"'")
		s.SendStatusMessage(streamID, "status", "NetStream.Unpublish.Success", s.GetStreamPath()+" is now unpublished.")
		s.server.channels.RemovePublisher(channel, s.id)
		s.server.channels.TryClearChannel(channel)
		s.status.ClearRole()
		s.server.notifyPublishEnd(channel, streamIDStr)
	}
}

// HandleAudioPacket latches sequence headers, feeds the GOP cache and fans
// the packet out through the channel directory.
func (s *RTMPSession) HandleAudioPacket(packet *RTMPPacket) bool {
	if !s.status.IsPublisher() {
		return true
	}

	soundFormat := (packet.payload[0] >> 4) & 0x0f
	isHeader := (soundFormat == 10 || soundFormat == 13) && len(packet.payload) > 1 && packet.payload[1] == 0

	if isHeader {
		s.publishState.SetAudioHeader(uint32(soundFormat), packet.payload)
		if LOG_DEBUG_ENABLED {
			logCodecIntrospection(s.id, s.ip, s.status.GetChannel(), "audio", packet.payload)
		}
	}

	cachePacket := createBlankRTMPPacket()
	cachePacket.header.fmt = RTMP_CHUNK_TYPE_0
	cachePacket.header.cid = RTMP_CHANNEL_AUDIO
	cachePacket.header.packet_type = RTMP_TYPE_AUDIO
	cachePacket.payload = packet.payload
	cachePacket.header.length = uint32(len(cachePacket.payload))
	cachePacket.header.timestamp = s.clock

	s.server.channels.SendPacket(s.status.GetChannel(), s.id, &cachePacket, isHeader)

	return true
}

// HandleVideoPacket mirrors HandleAudioPacket for video.
func (s *RTMPSession) HandleVideoPacket(packet *RTMPPacket) bool {
	if !s.status.IsPublisher() {
		return true
	}

	frameType := (packet.payload[0] >> 4) & 0x0f
	codecID := packet.payload[0] & 0x0f
	isHeader := (codecID == 7 || codecID == 12) && frameType == 1 && len(packet.payload) > 1 && packet.payload[1] == 0

	if isHeader {
		s.publishState.SetVideoHeader(uint32(codecID), packet.payload)
		if LOG_DEBUG_ENABLED {
			logCodecIntrospection(s.id, s.ip, s.status.GetChannel(), "video", packet.payload)
		}
	}

	cachePacket := createBlankRTMPPacket()
	cachePacket.header.fmt = RTMP_CHUNK_TYPE_0
	cachePacket.header.cid = RTMP_CHANNEL_VIDEO
	cachePacket.header.packet_type = RTMP_TYPE_VIDEO
	cachePacket.payload = packet.payload
	cachePacket.header.length = uint32(len(cachePacket.payload))
	cachePacket.header.timestamp = s.clock

	s.server.channels.SendPacket(s.status.GetChannel(), s.id, &cachePacket, isHeader)

	return true
}
