// Server configuration: loaded once at startup from the environment (and
// an optional .env file), then threaded everywhere by pointer. Never
// mutated after boot.

package main

import (
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/netdata/go.d.plugin/pkg/iprange"
)

// ServerConfig is the immutable configuration built once at process start.
type ServerConfig struct {
	RTMPPort      int
	RTMPHost      string
	BindAddress   string
	SSLPort       int
	SSLBindAddress string
	SSLCert       string
	SSLKey        string
	SSLCheckReloadSeconds int

	IDMaxLength             uint32
	IDAllowEmptyString      bool
	IDAllowSpecialCharacters bool

	RTMPPlayWhitelist string
	RTMPChunkSize     uint32

	GOPCacheLimitBytes uint64

	MaxIPConcurrentConnections uint32
	ConcurrentLimitWhitelist   string

	CallbackURL     string
	JWTSecret       string
	CustomJWTSubject string

	ControlSecret  string
	ControlBaseURL string
	ExternalIP     string
	ExternalPort   string
	ExternalSSL    bool

	MsgBusURL     string
	MsgBusChannel string

	LogRequests bool
	LogDebug    bool
	LogTrace    bool
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, e := strconv.Atoi(v)
	if e != nil {
		return def
	}
	return n
}

func envUint32(name string, def uint32) uint32 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, e := strconv.ParseUint(v, 10, 32)
	if e != nil {
		return def
	}
	return uint32(n)
}

// LoadConfig loads `.env` (if present) and builds the configuration from
// the environment, applying the same defaults as the teacher program.
func LoadConfig() *ServerConfig {
	_ = godotenv.Load()

	cfg := &ServerConfig{
		RTMPPort:    envInt("RTMP_PORT", 1935),
		RTMPHost:    os.Getenv("RTMP_HOST"),
		BindAddress: os.Getenv("BIND_ADDRESS"),

		SSLPort:               envInt("SSL_PORT", 443),
		SSLBindAddress:        os.Getenv("SSL_BIND_ADDRESS"),
		SSLCert:               os.Getenv("SSL_CERT"),
		SSLKey:                os.Getenv("SSL_KEY"),
		SSLCheckReloadSeconds: envInt("SSL_CHECK_RELOAD_SECONDS", 60),

		IDMaxLength:              envUint32("ID_MAX_LENGTH", DefaultIDMaxLength),
		IDAllowEmptyString:       os.Getenv("ID_ALLOW_EMPTY") == "YES",
		IDAllowSpecialCharacters: os.Getenv("ID_ALLOW_SPECIAL_CHARACTERS") == "YES",

		RTMPPlayWhitelist: os.Getenv("RTMP_PLAY_WHITELIST"),
		RTMPChunkSize:     RTMP_CHUNK_SIZE,

		GOPCacheLimitBytes: 256 * 1024 * 1024,

		MaxIPConcurrentConnections: envUint32("MAX_IP_CONCURRENT_CONNECTIONS", 4),
		ConcurrentLimitWhitelist:   os.Getenv("CONCURRENT_LIMIT_WHITELIST"),

		CallbackURL:      os.Getenv("CALLBACK_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CustomJWTSubject: os.Getenv("CUSTOM_JWT_SUBJECT"),

		ControlSecret:  os.Getenv("CONTROL_SECRET"),
		ControlBaseURL: os.Getenv("CONTROL_BASE_URL"),
		ExternalIP:     os.Getenv("EXTERNAL_IP"),
		ExternalPort:   os.Getenv("EXTERNAL_PORT"),
		ExternalSSL:    os.Getenv("EXTERNAL_SSL") == "YES",

		MsgBusURL:     os.Getenv("MSG_BUS_URL"),
		MsgBusChannel: os.Getenv("MSG_BUS_CHANNEL"),

		LogRequests: os.Getenv("LOG_REQUESTS") != "NO",
		LogDebug:    os.Getenv("LOG_DEBUG") == "YES",
		LogTrace:    os.Getenv("LOG_TRACE") == "YES",
	}

	if cfg.MsgBusChannel == "" {
		cfg.MsgBusChannel = "rtmp_commands"
	}

	if chunkSize := envUint32("RTMP_CHUNK_SIZE", 0); chunkSize > RTMP_CHUNK_SIZE {
		cfg.RTMPChunkSize = chunkSize
	}

	if gopMB := envInt("GOP_CACHE_SIZE_MB", 0); gopMB > 0 {
		cfg.GOPCacheLimitBytes = uint64(gopMB) * 1024 * 1024
	}

	return cfg
}

// idValidationConfig builds the ID validation rule set from the config.
func (c *ServerConfig) idValidationConfig() IDValidationConfig {
	return IDValidationConfig{
		MaxLength:         c.IDMaxLength,
		AllowEmptyString:  c.IDAllowEmptyString,
		AllowSpecialChars: c.IDAllowSpecialCharacters,
	}
}

// matchesWhitelist checks ip against a comma-separated CIDR/range list, "*"
// meaning "match everything" and "" meaning "match nothing".
func matchesWhitelist(ip string, whitelist string) bool {
	if whitelist == "" {
		return false
	}
	if whitelist == "*" {
		return true
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, part := range strings.Split(whitelist, ",") {
		rang, e := iprange.ParseRange(strings.TrimSpace(part))
		if e != nil {
			continue
		}
		if rang.Contains(parsedIP) {
			return true
		}
	}

	return false
}
