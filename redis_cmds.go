// Out-of-band command bus: a Redis pub/sub subscription letting an
// external operator kill sessions or close streams without going through
// the control websocket.

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupMessageBusCommandReceiver(server *RTMPServer, cfg *ServerConfig) {
	if cfg.MsgBusURL == "" {
		return
	}

	defer func() {
		if err := recover(); err != nil {
			switch x := err.(type) {
			case string:
				LogError(errors.New(x))
			case error:
				LogError(x)
			default:
				LogError(errors.New("could not connect to message bus"))
			}
		}
		LogWarning("Connection to message bus lost!")
	}()

	opts, err := redis.ParseURL(cfg.MsgBusURL)
	if err != nil {
		u, uerr := url.Parse(cfg.MsgBusURL)
		if uerr != nil {
			LogError(err)
			return
		}
		opts = &redis.Options{Addr: u.Host}
		if u.User != nil {
			if pw, ok := u.User.Password(); ok {
				opts.Password = pw
			}
		}
		if u.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{}
		}
	}

	ctx := context.Background()
	redisClient := redis.NewClient(opts)

	subscriber := redisClient.Subscribe(ctx, cfg.MsgBusChannel)

	LogInfo("[MSG-BUS] Listening for commands on channel '" + cfg.MsgBusChannel + "'")

	for {
		msg, err := subscriber.ReceiveMessage(ctx)

		if err != nil {
			LogWarning("Could not connect to message bus: " + err.Error())
			time.Sleep(10 * time.Second)
		} else {
			parseMessageBusCommand(server, msg.Payload)
		}
	}
}

// parseMessageBusCommand handles the `kill-session>channel` and
// `close-stream>channel|stream_id` command grammar.
func parseMessageBusCommand(server *RTMPServer, cmd string) {
	defer func() {
		if err := recover(); err != nil {
			switch x := err.(type) {
			case string:
				LogError(errors.New(x))
			case error:
				LogError(x)
			default:
				LogError(errors.New("parsing error"))
			}
		}
		LogWarning("Could not parse message: " + cmd)
	}()

	parts := strings.SplitN(cmd, ">", 2)
	if len(parts) != 2 {
		LogWarning("Invalid message from message bus: " + cmd)
		return
	}

	cmdName := parts[0]
	cmdArgs := strings.Split(parts[1], "|")

	switch cmdName {
	case "kill-session":
		if len(cmdArgs) < 1 {
			LogWarning("Invalid message from message bus: " + cmd)
			return
		}
		channel := cmdArgs[0]
		server.channels.KillPublisher(channel, "")
		server.channels.TryClearChannel(channel)
	case "close-stream":
		if len(cmdArgs) < 2 {
			LogWarning("Invalid message from message bus: " + cmd)
			return
		}

		channel := cmdArgs[0]
		streamId := cmdArgs[1]
		server.channels.KillPublisher(channel, streamId)
		server.channels.TryClearChannel(channel)
	default:
		LogWarning("Unknown message bus command: " + cmd)
	}
}
