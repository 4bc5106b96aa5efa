// File: server/config.go
// Package server wires the leaf packages (netio, wslisten, httpparse,
// multipart, responder, connmgr) into one embeddable HTTP server facade.
//
// Config is a plain struct with a DefaultConfig constructor, populated by
// the embedder rather than parsed from argv or a config file; argv and
// file handling belong to whatever application hosts the server.
package server

import (
	"time"

	"github.com/embedserve/emhttpd/api"
)

// WSContent selects whether a WebSocket handler's application-level sends
// default to a text or binary opcode.
type WSContent int

const (
	ContentBinary WSContent = iota
	ContentText
)

// WSHandlerConfig configures one WebSocket route: the URI prefix it
// matches, the channel-id pool it reserves from, and its link's framing
// and liveness limits.
type WSHandlerConfig struct {
	Prefix      string
	ProtocolTag string
	MaxConn     int
	PktMaxBytes int
	TxQueueMax  int
	PingMS      int64
	NoPongMS    int64
	Content     WSContent
}

// Config holds every parameter the embedder supplies at construction time;
// TaskCore/TaskPriority/TaskStackSize describe a bare-metal RTOS scheduling
// knob carried by firmware configuration blobs — Go's goroutine scheduler
// has no equivalent lever, so these fields are retained purely as
// pass-through introspection data and influence nothing.
type Config struct {
	ServerTCPPort    int
	NumConnSlots     int
	EnableWebSockets bool
	EnableFileServer bool

	TaskCore      int
	TaskPriority  int
	TaskStackSize int

	SendBufferMaxLen int
	RestAPIChannelID uint32

	StdResponseHeaders []api.HeaderField
	RestAPIPrefix      string

	StaticFilePaths        map[string]string
	StaticFileCacheControl map[string]string
	MimeTypes              map[string]string

	NotFoundPageSource []byte

	ClearPendingMS int64
	IdleTimeoutMS  int64
	TotalTimeoutMS int64

	Bus api.MessageBus
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerTCPPort:          80,
		NumConnSlots:           10,
		EnableWebSockets:       true,
		EnableFileServer:       true,
		SendBufferMaxLen:       64 * 1024,
		RestAPIChannelID:       0,
		StdResponseHeaders:     nil,
		RestAPIPrefix:          "/api",
		StaticFilePaths:        map[string]string{},
		StaticFileCacheControl: map[string]string{},
		MimeTypes:              map[string]string{},
		NotFoundPageSource:     []byte("404 not found"),
		ClearPendingMS:         200,
		IdleTimeoutMS:          60_000,
		TotalTimeoutMS:         60 * 60 * 1000,
	}
}

func (c *Config) idleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

func (c *Config) totalTimeout() time.Duration {
	return time.Duration(c.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) clearPendingGrace() time.Duration {
	return time.Duration(c.ClearPendingMS) * time.Millisecond
}
