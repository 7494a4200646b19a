// Websocket authentication

package main

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const controlAuthTokenTTL = time.Hour

// MakeWebsocketAuthenticationToken signs a short-lived token identifying
// this server to the coordinator's control websocket.
func MakeWebsocketAuthenticationToken(cfg *ServerConfig) string {
	secret := cfg.ControlSecret

	if secret == "" {
		return ""
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "rtmp-control",
		"iat": now.Unix(),
		"exp": now.Add(controlAuthTokenTTL).Unix(),
	})

	tokenBase64, e := token.SignedString([]byte(secret))

	if e != nil {
		LogError(e)
		return ""
	}

	return tokenBase64
}
