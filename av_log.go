// Wires the codec introspection helpers in av.go into debug logging,
// emitted once per latched sequence header.

package main

import "strconv"

func logCodecIntrospection(sessionID uint64, ip string, channel string, kind string, header []byte) {
	defer func() { _ = recover() }() // malformed headers must never crash the session

	switch kind {
	case "audio":
		info := readAACSpecificConfig(header)
		profile := getAACProfileName(info)
		LogDebugSession(sessionID, ip, "PUBLISH ("+channel+"): audio codec=AAC profile="+profile+" sample_rate="+strconv.Itoa(int(info.sample_rate))+" channels="+strconv.Itoa(int(info.channels)))
	case "video":
		info := readAVCSpecificConfig(header)
		profile := getAVCProfileName(info)
		name := VIDEO_CODEC_NAME[info.codec]
		level := info.h264.level
		if info.codec == AVC_CODEC_HEVC {
			level = info.hevc.level
		}
		LogDebugSession(sessionID, ip, "PUBLISH ("+channel+"): video codec="+name+" profile="+profile+" level="+strconv.FormatFloat(float64(level), 'f', 1, 32))
	}
}
