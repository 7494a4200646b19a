// RTMP invoke commands and data-channel messages
//
// Command/data payloads are AMF0 value sequences whose meaning is purely
// positional: the command name (or data tag) selects a fixed list of named
// argument slots, and values are read/written into those slots in order.

package main

var rtmpCommandArgNames = map[string][]string{
	"_result":           {"transId", "cmdObj", "info"},
	"_error":            {"transId", "cmdObj", "info", "streamId"},
	"onStatus":          {"transId", "cmdObj", "info"},
	"releaseStream":     {"transId", "cmdObj", "streamName"},
	"getStreamLength":   {"transId", "cmdObj", "streamId"},
	"getMovLen":         {"transId", "cmdObj", "streamId"},
	"FCPublish":         {"transId", "cmdObj", "streamName"},
	"FCUnpublish":       {"transId", "cmdObj", "streamName"},
	"FCSubscribe":       {"transId", "cmdObj", "streamName"},
	"onFCPublish":       {"transId", "cmdObj", "info"},
	"connect":           {"transId", "cmdObj", "args"},
	"call":              {"transId", "cmdObj", "args"},
	"createStream":      {"transId", "cmdObj"},
	"close":             {"transId", "cmdObj"},
	"play":              {"transId", "cmdObj", "streamName", "start", "duration", "reset"},
	"play2":             {"transId", "cmdObj", "params"},
	"deleteStream":      {"transId", "cmdObj", "streamId"},
	"closeStream":       {"transId", "cmdObj"},
	"receiveAudio":      {"transId", "cmdObj", "bool"},
	"receiveVideo":      {"transId", "cmdObj", "bool"},
	"publish":           {"transId", "cmdObj", "streamName", "type"},
	"seek":              {"transId", "cmdObj", "ms"},
	"pause":             {"transId", "cmdObj", "pause", "ms"},
}

var rtmpDataArgNames = map[string][]string{
	"@setDataFrame":     {"method", "dataObj"},
	"onFI":              {"info"},
	"onMetaData":        {"dataObj"},
	"|RtmpSampleAccess": {"bool1", "bool2"},
}

// RTMPCommand is a decoded (or to-be-encoded) AMF0 invoke payload, e.g.
// connect, publish, play.
type RTMPCommand struct {
	cmd       string
	arguments map[string]*AMF0Value
}

func (c *RTMPCommand) GetArg(name string) *AMF0Value {
	return c.arguments[name]
}

func (c *RTMPCommand) ToString() string {
	s := c.cmd + " {\n"
	for name, val := range c.arguments {
		s += "    '" + name + "' = " + val.ToString("    ") + "\n"
	}
	s += "}"
	return s
}

// Encode serializes the command back into an AMF0 invoke payload, filling
// in any argument slot that was never set with AMF0 undefined.
func (c *RTMPCommand) Encode() []byte {
	nameVal := createAMF0Value(AMF0_TYPE_STRING)
	nameVal.str_val = c.cmd
	buf := amf0EncodeOne(nameVal)

	argNames, ok := rtmpCommandArgNames[c.cmd]
	if !ok {
		return buf
	}

	for _, name := range argNames {
		if v, exists := c.arguments[name]; exists && v != nil {
			buf = append(buf, amf0EncodeOne(*v)...)
		} else {
			buf = append(buf, amf0EncodeOne(createAMF0Value(AMF0_TYPE_UNDEFINED))...)
		}
	}

	return buf
}

// decodeRTMPCommand decodes an AMF0 invoke payload into an RTMPCommand,
// reading positional arguments according to the command name. It returns
// an error if the payload is truncated mid-value.
func decodeRTMPCommand(data []byte) (RTMPCommand, error) {
	s := newAMFDecodingStream(data)

	cmdVal := s.ReadOne()
	c := RTMPCommand{cmd: cmdVal.GetString(), arguments: make(map[string]*AMF0Value)}

	argNames, ok := rtmpCommandArgNames[c.cmd]
	if !ok {
		return c, s.Err()
	}

	for i := 0; i < len(argNames) && !s.IsEnded(); i++ {
		v := s.ReadOne()
		c.arguments[argNames[i]] = &v
	}

	return c, s.Err()
}

// RTMPData is a decoded (or to-be-encoded) AMF0 data-channel payload, e.g.
// onMetaData, @setDataFrame.
type RTMPData struct {
	tag       string
	arguments map[string]*AMF0Value
}

func (d *RTMPData) GetArg(name string) *AMF0Value {
	return d.arguments[name]
}

func (d *RTMPData) ToString() string {
	s := d.tag + " {\n"
	for name, val := range d.arguments {
		s += "    '" + name + "' = " + val.ToString("    ") + "\n"
	}
	s += "}"
	return s
}

func (d *RTMPData) Encode() []byte {
	tagVal := createAMF0Value(AMF0_TYPE_STRING)
	tagVal.str_val = d.tag
	buf := amf0EncodeOne(tagVal)

	argNames, ok := rtmpDataArgNames[d.tag]
	if !ok {
		return buf
	}

	for _, name := range argNames {
		if v, exists := d.arguments[name]; exists && v != nil {
			buf = append(buf, amf0EncodeOne(*v)...)
		}
	}

	return buf
}

// decodeRTMPData decodes an AMF0 data payload into an RTMPData. It returns
// an error if the payload is truncated mid-value.
func decodeRTMPData(data []byte) (RTMPData, error) {
	s := newAMFDecodingStream(data)

	tagVal := s.ReadOne()
	d := RTMPData{tag: tagVal.GetString(), arguments: make(map[string]*AMF0Value)}

	argNames, ok := rtmpDataArgNames[d.tag]
	if !ok {
		return d, s.Err()
	}

	for i := 0; i < len(argNames) && !s.IsEnded(); i++ {
		v := s.ReadOne()
		d.arguments[argNames[i]] = &v
	}

	return d, s.Err()
}
