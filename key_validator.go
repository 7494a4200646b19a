// KeyValidator is the collaborator that decides whether a publish may
// proceed and is told when a publish ends. Concrete implementations are
// the HTTP callback (rtmp_callback.go) and the controller websocket
// connection (control_connection.go).

package main

// KeyValidator authorizes publish attempts and observes publish endings.
type KeyValidator interface {
	// PublishStart is called before a publish is admitted. ip is the
	// publishing client's remote address. On success it returns the
	// stream id the session should report upstream (may be empty) and
	// true; on rejection it returns false.
	PublishStart(channel, key, ip string) (streamID string, ok bool)

	// PublishEnd notifies that a previously-admitted publish has ended.
	PublishEnd(channel, streamID string)
}
