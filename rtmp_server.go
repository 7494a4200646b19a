// RTMP server: listeners, per-IP accounting, and the glue between a
// session and the channel directory / external collaborators.

package main

import (
	"crypto/tls"
	"net"
	"strconv"
	"sync"
)

// RTMPServer owns the listeners and the shared channel directory.
type RTMPServer struct {
	config *ServerConfig

	listener       net.Listener
	secureListener net.Listener

	channels *ChannelDirectory

	ipMutex       sync.Mutex
	ipCount       map[string]uint32
	nextSessionID uint64
	sessionMu     sync.Mutex

	keyValidator KeyValidator

	websocketControlConnection *ControlServerConnection
}

// CreateRTMPServer builds and binds the RTMP (and, if configured, RTMPS)
// listeners from cfg. Returns nil on listener failure.
func CreateRTMPServer(cfg *ServerConfig) *RTMPServer {
	server := &RTMPServer{
		config:  cfg,
		ipCount: make(map[string]uint32),
	}

	lTCP, errTCP := net.Listen("tcp", cfg.BindAddress+":"+strconv.Itoa(cfg.RTMPPort))
	if errTCP != nil {
		LogError(errTCP)
		return nil
	}
	server.listener = lTCP
	LogInfo("[RTMP] Listening on " + cfg.BindAddress + ":" + strconv.Itoa(cfg.RTMPPort))

	if cfg.SSLCert != "" && cfg.SSLKey != "" {
		loader, err := NewCertProvider(cfg.SSLCert, cfg.SSLKey, cfg.SSLCheckReloadSeconds)
		if err != nil {
			LogError(err)
			server.listener.Close()
			return nil
		}

		tlsConfig := &tls.Config{GetCertificate: loader.GetCertificateFunc()}
		lnSSL, errSSL := tls.Listen("tcp", cfg.SSLBindAddress+":"+strconv.Itoa(cfg.SSLPort), tlsConfig)
		if errSSL != nil {
			LogError(errSSL)
			return nil
		}
		server.secureListener = lnSSL
		LogInfo("[SSL] Listening on " + cfg.SSLBindAddress + ":" + strconv.Itoa(cfg.SSLPort))
	}

	server.channels = NewChannelDirectory(cfg.GOPCacheLimitBytes, nil)

	return server
}

// SetKeyValidator installs the collaborator that authorizes publishes. Must
// be called before Start.
func (server *RTMPServer) SetKeyValidator(v KeyValidator) {
	server.keyValidator = v
	server.channels.keyValidator = v
}

func (server *RTMPServer) validatePublish(channel, key, ip string) (streamID string, ok bool) {
	if server.keyValidator == nil {
		return "", true
	}
	return server.keyValidator.PublishStart(channel, key, ip)
}

func (server *RTMPServer) notifyPublishEnd(channel, streamID string) {
	if server.keyValidator == nil {
		return
	}
	server.keyValidator.PublishEnd(channel, streamID)
}

func (server *RTMPServer) outChunkSize() uint32 {
	return server.config.RTMPChunkSize
}

func (server *RTMPServer) addIP(ip string) bool {
	server.ipMutex.Lock()
	defer server.ipMutex.Unlock()

	c := server.ipCount[ip]
	if c >= server.config.MaxIPConcurrentConnections {
		return false
	}
	server.ipCount[ip] = c + 1
	return true
}

func (server *RTMPServer) removeIP(ip string) {
	server.ipMutex.Lock()
	defer server.ipMutex.Unlock()

	c := server.ipCount[ip]
	if c <= 1 {
		delete(server.ipCount, ip)
	} else {
		server.ipCount[ip] = c - 1
	}
}

func (server *RTMPServer) isIPExempted(ip string) bool {
	return matchesWhitelist(ip, server.config.ConcurrentLimitWhitelist)
}

func (server *RTMPServer) nextSessionId() uint64 {
	server.sessionMu.Lock()
	defer server.sessionMu.Unlock()
	server.nextSessionID++
	return server.nextSessionID
}

// AcceptConnections runs the accept loop for one listener until it errors.
func (server *RTMPServer) AcceptConnections(listener net.Listener, wg *sync.WaitGroup) {
	defer func() {
		listener.Close()
		wg.Done()
	}()

	for {
		c, err := listener.Accept()
		if err != nil {
			LogError(err)
			return
		}

		id := server.nextSessionId()
		var ip string
		if addr, ok := c.RemoteAddr().(*net.TCPAddr); ok {
			ip = addr.IP.String()
		} else {
			ip = c.RemoteAddr().String()
		}

		if !server.isIPExempted(ip) {
			if !server.addIP(ip) {
				c.Close()
				LogRequest(id, ip, "Connection rejected: Too many requests")
				continue
			}
		}

		LogDebugSession(id, ip, "Connection accepted!")
		go server.HandleConnection(id, ip, c)
	}
}

// HandleConnection runs a single session's three tasks to completion.
func (server *RTMPServer) HandleConnection(id uint64, ip string, c net.Conn) {
	s := CreateRTMPSession(server, id, ip, c)

	defer func() {
		if err := recover(); err != nil {
			switch x := err.(type) {
			case string:
				LogRequest(id, ip, "Error: "+x)
			case error:
				LogRequest(id, ip, "Error: "+x.Error())
			default:
				LogRequest(id, ip, "Connection Crashed!")
			}
		}
		s.OnClose()
		c.Close()
		server.removeIP(ip)
		LogDebugSession(id, ip, "Connection closed!")
	}()

	go s.runOutTask()
	go s.runPingTask()

	s.HandleSession()
}

// Start runs the accept loops for every configured listener. Blocks until
// all listeners stop.
func (server *RTMPServer) Start() {
	var wg sync.WaitGroup

	if server.listener != nil {
		wg.Add(1)
		go server.AcceptConnections(server.listener, &wg)
	}

	if server.secureListener != nil {
		wg.Add(1)
		go server.AcceptConnections(server.secureListener, &wg)
	}

	wg.Wait()
}
