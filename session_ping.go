// Ping task: emits periodic PING user-control requests, cancellable by the
// read task when the session ends.

package main

import "time"

// runPingTask sends a PING request every RTMP_PING_TIME seconds until
// cancelPing is closed by the read task's teardown path.
func (s *RTMPSession) runPingTask() {
	ticker := time.NewTicker(RTMP_PING_TIME * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SendPingRequest()
		case <-s.cancelPing:
			return
		}
	}
}
