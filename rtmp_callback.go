// HTTP callback KeyValidator: asks an external service to authorize a
// publish, and notifies it when the publish ends.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const callbackJWTExpirationSeconds = 120

// HTTPCallbackValidator implements KeyValidator by POSTing a signed JWT to a
// configured callback URL, per event.
type HTTPCallbackValidator struct {
	cfg *ServerConfig
}

func NewHTTPCallbackValidator(cfg *ServerConfig) *HTTPCallbackValidator {
	return &HTTPCallbackValidator{cfg: cfg}
}

func (v *HTTPCallbackValidator) subject() string {
	if v.cfg.CustomJWTSubject != "" {
		return v.cfg.CustomJWTSubject
	}
	return "rtmp_event"
}

func (v *HTTPCallbackValidator) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.cfg.JWTSecret))
}

func (v *HTTPCallbackValidator) send(token string) (*http.Response, error) {
	req, err := http.NewRequest("POST", v.cfg.CallbackURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("rtmp-event", token)

	client := &http.Client{}
	return client.Do(req)
}

// PublishStart authorizes channel/key for ip. An empty CallbackURL means no
// callback is configured, and every publish is accepted.
func (v *HTTPCallbackValidator) PublishStart(channel, key, ip string) (streamID string, ok bool) {
	if v.cfg.CallbackURL == "" {
		return "", true
	}

	LogDebug("POST " + v.cfg.CallbackURL + " | Event: START | Channel: " + channel)

	exp := time.Now().Unix() + callbackJWTExpirationSeconds
	token, err := v.sign(jwt.MapClaims{
		"sub":       v.subject(),
		"event":     "start",
		"channel":   channel,
		"key":       key,
		"client_ip": ip,
		"rtmp_host": v.cfg.RTMPHost,
		"rtmp_port": v.cfg.RTMPPort,
		"exp":       exp,
		"iat":       time.Now().Unix(),
	})
	if err != nil {
		LogError(err)
		return "", false
	}

	res, err := v.send(token)
	if err != nil {
		LogError(err)
		return "", false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		LogDebug("Callback request ended with status code: " + fmt.Sprint(res.StatusCode))
		return "", false
	}

	streamID = res.Header.Get("stream-id")
	return streamID, true
}

// PublishEnd notifies the callback that channel/streamID stopped publishing.
// Delivery is best-effort; failures are logged and otherwise ignored.
func (v *HTTPCallbackValidator) PublishEnd(channel, streamID string) {
	if v.cfg.CallbackURL == "" {
		return
	}

	LogDebug("POST " + v.cfg.CallbackURL + " | Event: STOP | Channel: " + channel)

	exp := time.Now().Unix() + callbackJWTExpirationSeconds
	token, err := v.sign(jwt.MapClaims{
		"sub":       v.subject(),
		"event":     "stop",
		"channel":   channel,
		"stream_id": streamID,
		"exp":       exp,
		"iat":       time.Now().Unix(),
	})
	if err != nil {
		LogError(err)
		return
	}

	res, err := v.send(token)
	if err != nil {
		LogError(err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		LogDebug("Callback request ended with status code: " + fmt.Sprint(res.StatusCode))
	}
}
