// Logs

package main

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

var LOG_MUTEX = sync.Mutex{}

func LogLine(line string) {
	tm := time.Now()
	LOG_MUTEX.Lock()
	defer LOG_MUTEX.Unlock()
	fmt.Printf("[%s] %s\n", tm.Format("2006-01-02 15:04:05"), line)
}

func LogWarning(line string) {
	LogLine("[WARNING] " + line)
}

func LogInfo(line string) {
	LogLine("[INFO] " + line)
}

func LogError(err error) {
	LogLine("[ERROR] " + err.Error())
}

// LogErrorMessage logs an error that did not originate from a Go error
// value, such as a remote error code reported by the coordinator.
func LogErrorMessage(line string) {
	LogLine("[ERROR] " + line)
}

var LOG_REQUESTS_ENABLED = true

func LogRequest(session_id uint64, ip string, line string) {
	if LOG_REQUESTS_ENABLED {
		LogLine("[REQUEST] #" + strconv.Itoa(int(session_id)) + " (" + ip + ") " + line)
	}
}

var LOG_DEBUG_ENABLED = false

func LogDebug(line string) {
	if LOG_DEBUG_ENABLED {
		LogLine("[DEBUG] " + line)
	}
}

func LogDebugSession(session_id uint64, ip string, line string) {
	if LOG_DEBUG_ENABLED {
		LogLine("[DEBUG] #" + strconv.Itoa(int(session_id)) + " (" + ip + ") " + line)
	}
}

// LOG_TRACE_ENABLED gates the very verbose per-chunk/per-AMF-value tracing.
// Distinct from LOG_DEBUG: debug logs one line per command/event, trace logs
// one line per wire-level unit and is expected to be noisy.
var LOG_TRACE_ENABLED = false

func LogTrace(line string) {
	if LOG_TRACE_ENABLED {
		LogLine("[TRACE] " + line)
	}
}

func LogTraceSession(session_id uint64, ip string, line string) {
	if LOG_TRACE_ENABLED {
		LogLine("[TRACE] #" + strconv.Itoa(int(session_id)) + " (" + ip + ") " + line)
	}
}

// ApplyLogConfig wires the log gates to the loaded configuration. Called
// once at startup, before any listener is accepting connections.
func ApplyLogConfig(cfg *ServerConfig) {
	LOG_REQUESTS_ENABLED = cfg.LogRequests
	LOG_DEBUG_ENABLED = cfg.LogDebug
	LOG_TRACE_ENABLED = cfg.LogTrace
}
