// Control server connection: a websocket link to an external coordinator
// that authorizes publishes and can kill sessions remotely.

package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	messages "github.com/AgustinSRG/go-simple-rpc-message"
	"github.com/gorilla/websocket"
)

// ControlServerConnection holds the websocket link to the coordinator. It
// implements KeyValidator, delegating publish authorization to PUBLISH
// request/response round trips over the socket.
type ControlServerConnection struct {
	server *RTMPServer
	cfg    *ServerConfig

	connectionURL string
	connection    *websocket.Conn

	lock *sync.Mutex

	nextRequestId uint64

	requests map[string]*ControlServerPendingRequest

	enabled bool
}

type ControlServerPendingRequest struct {
	waiter chan PublishResponse
}

type PublishResponse struct {
	accepted bool
	streamId string
}

// Initialize sets up the connection and, if a CONTROL_BASE_URL is
// configured, starts the connect and heartbeat loops. Call before
// server.Start().
func (c *ControlServerConnection) Initialize(server *RTMPServer, cfg *ServerConfig) {
	c.server = server
	c.cfg = cfg
	c.lock = &sync.Mutex{}
	c.nextRequestId = 0
	c.requests = make(map[string]*ControlServerPendingRequest)

	baseURL := cfg.ControlBaseURL

	if baseURL == "" {
		LogWarning("CONTROL_BASE_URL not provided. The server will run in stand-alone mode.")
		c.enabled = false
		return
	}

	connectionURL, err := url.Parse(baseURL)
	if err != nil {
		LogError(err)
		LogWarning("CONTROL_BASE_URL not provided. The server will run in stand-alone mode.")
		c.enabled = false
		return
	}
	pathURL, err := url.Parse("/ws/control/rtmp")
	if err != nil {
		LogError(err)
		LogWarning("CONTROL_BASE_URL not provided. The server will run in stand-alone mode.")
		c.enabled = false
		return
	}

	c.connectionURL = connectionURL.ResolveReference(pathURL).String()
	c.enabled = true

	go c.Connect()
	go c.RunHeartBeatLoop()
}

func (c *ControlServerConnection) Connect() {
	c.lock.Lock()

	if c.connection != nil {
		c.lock.Unlock()
		return
	}

	LogInfo("[WS-CONTROL] Connecting to " + c.connectionURL)

	headers := http.Header{}

	authToken := MakeWebsocketAuthenticationToken(c.cfg)

	if authToken != "" {
		headers.Set("x-control-auth-token", authToken)
	}

	if c.cfg.ExternalIP != "" {
		headers.Set("x-external-ip", c.cfg.ExternalIP)
	}

	if c.cfg.ExternalPort != "" {
		headers.Set("x-custom-port", c.cfg.ExternalPort)
	}

	if c.cfg.ExternalSSL {
		headers.Set("x-ssl-use", "true")
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.connectionURL, headers)

	if err != nil {
		c.lock.Unlock()
		LogErrorMessage("[WS-CONTROL] Connection error: " + err.Error())
		go c.Reconnect()
		return
	}

	c.connection = conn

	c.lock.Unlock()

	// The coordinator thinks the streaming server went down while
	// disconnected, so every publisher it previously authorized is
	// presumed stale and must be killed.
	c.server.channels.RemoveAllPublishers()

	go c.RunReaderLoop(conn)
}

func (c *ControlServerConnection) Reconnect() {
	LogInfo("[WS-CONTROL] Waiting 10 seconds to reconnect.")
	time.Sleep(10 * time.Second)
	c.Connect()
}

func (c *ControlServerConnection) OnDisconnect(err error) {
	c.lock.Lock()
	c.connection = nil
	LogInfo("[WS-CONTROL] Disconnected: " + err.Error())
	c.lock.Unlock()

	go c.Connect()
}

func (c *ControlServerConnection) Send(msg messages.RPCMessage) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.connection == nil {
		return false
	}

	c.connection.WriteMessage(websocket.TextMessage, []byte(msg.Serialize()))

	if LOG_DEBUG_ENABLED {
		LogDebug("[WS-CONTROL] >>>\n" + string(msg.Serialize()))
	}

	return true
}

func (c *ControlServerConnection) GetNextRequestId() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	requestId := c.nextRequestId

	c.nextRequestId++

	return requestId
}

func (c *ControlServerConnection) RunReaderLoop(conn *websocket.Conn) {
	for {
		err := conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if err != nil {
			conn.Close()
			c.OnDisconnect(err)
			return
		}

		_, message, err := conn.ReadMessage()

		if err != nil {
			conn.Close()
			c.OnDisconnect(err)
			return
		}

		msgStr := string(message)

		if LOG_DEBUG_ENABLED {
			LogDebug("[WS-CONTROL] <<<\n" + msgStr)
		}

		msg := messages.ParseRPCMessage(msgStr)

		c.ParseIncomingMessage(&msg)
	}
}

func (c *ControlServerConnection) ParseIncomingMessage(msg *messages.RPCMessage) {
	switch msg.Method {
	case "ERROR":
		LogErrorMessage("[WS-CONTROL] Remote error. Code=" + msg.GetParam("Error-Code") + " / Details: " + msg.GetParam("Error-Message"))
	case "PUBLISH-ACCEPT":
		c.OnPublishAccept(msg.GetParam("Request-Id"), msg.GetParam("Stream-Id"))
	case "PUBLISH-DENY":
		c.OnPublishDeny(msg.GetParam("Request-Id"))
	case "STREAM-KILL":
		c.OnStreamKill(msg.GetParam("Stream-Channel"), msg.GetParam("Stream-Id"))
	}
}

func (c *ControlServerConnection) OnPublishAccept(requestId string, streamId string) {
	c.lock.Lock()
	req := c.requests[requestId]
	c.lock.Unlock()

	if req == nil {
		return
	}

	req.waiter <- PublishResponse{accepted: true, streamId: streamId}
}

func (c *ControlServerConnection) OnPublishDeny(requestId string) {
	c.lock.Lock()
	req := c.requests[requestId]
	c.lock.Unlock()

	if req == nil {
		return
	}

	req.waiter <- PublishResponse{accepted: false, streamId: ""}
}

// OnStreamKill kills the publisher of channel. An empty or "*" streamId
// kills whoever currently holds the channel; otherwise only a matching
// stream id is killed.
func (c *ControlServerConnection) OnStreamKill(channel string, streamId string) {
	if streamId == "*" {
		streamId = ""
	}
	c.server.channels.KillPublisher(channel, streamId)
}

func (c *ControlServerConnection) RunHeartBeatLoop() {
	for {
		time.Sleep(20 * time.Second)

		heartbeatMessage := messages.RPCMessage{
			Method: "HEARTBEAT",
		}

		c.Send(heartbeatMessage)
	}
}

// PublishStart implements KeyValidator by round-tripping a PUBLISH-REQUEST
// to the coordinator and blocking until it answers or 20 seconds pass.
func (c *ControlServerConnection) PublishStart(channel, key, userIP string) (streamID string, ok bool) {
	if !c.enabled {
		return "", true
	}

	requestId := fmt.Sprint(c.GetNextRequestId())

	request := ControlServerPendingRequest{
		waiter: make(chan PublishResponse),
	}

	msgParams := make(map[string]string)

	msgParams["Request-ID"] = requestId
	msgParams["Stream-Channel"] = channel
	msgParams["Stream-Key"] = key
	msgParams["User-IP"] = userIP

	msg := messages.RPCMessage{
		Method: "PUBLISH-REQUEST",
		Params: msgParams,
	}

	c.lock.Lock()
	c.requests[requestId] = &request
	c.lock.Unlock()

	success := c.Send(msg)

	if !success {
		c.lock.Lock()
		delete(c.requests, requestId)
		c.lock.Unlock()

		return "", false
	}

	time.AfterFunc(20*time.Second, func() { request.waiter <- PublishResponse{accepted: false, streamId: ""} })

	res := <-request.waiter

	c.lock.Lock()
	delete(c.requests, requestId)
	c.lock.Unlock()

	return res.streamId, res.accepted
}

// PublishEnd implements KeyValidator, telling the coordinator a publish
// finished. Delivery is fire-and-forget: a down connection simply drops it.
func (c *ControlServerConnection) PublishEnd(channel string, streamId string) {
	if !c.enabled {
		return
	}

	msgParams := make(map[string]string)

	msgParams["Stream-Channel"] = channel
	msgParams["Stream-ID"] = streamId

	msg := messages.RPCMessage{
		Method: "PUBLISH-END",
		Params: msgParams,
	}

	c.Send(msg)
}
