package testutil

import (
	"encoding/json"
	"sync"

	"github.com/mcoot/paintergame/internal/protocol"
)

// RecordingConn is an in-memory transport handle that records every frame sent to it.
type RecordingConn struct {
	mu          sync.Mutex
	messages    []protocol.Envelope
	closed      bool
	closeReason string
}

// NewRecordingConn creates an open recording connection
func NewRecordingConn() *RecordingConn {
	return &RecordingConn{}
}

// Send records a frame. Frames sent after Close are dropped.
func (c *RecordingConn) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	env, err := protocol.Decode(msg)
	if err != nil {
		return false
	}
	c.messages = append(c.messages, env)
	return true
}

// Close marks the connection closed with the given reason
func (c *RecordingConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeReason = reason
}

// Messages returns a copy of every recorded frame
func (c *RecordingConn) Messages() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Envelope, len(c.messages))
	copy(out, c.messages)
	return out
}

// Types returns the type of every recorded frame in order
func (c *RecordingConn) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Type
	}
	return out
}

// OfType returns the recorded frames of one type
func (c *RecordingConn) OfType(msgType string) []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Envelope
	for _, m := range c.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent frame
func (c *RecordingConn) Last() (protocol.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return protocol.Envelope{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// LastData decodes the payload of the most recent frame of msgType into v
func (c *RecordingConn) LastData(msgType string, v any) bool {
	frames := c.OfType(msgType)
	if len(frames) == 0 {
		return false
	}
	return json.Unmarshal(frames[len(frames)-1].Data, v) == nil
}

// Closed reports whether Close was called and with which reason
func (c *RecordingConn) Closed() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeReason
}

// Reset forgets recorded frames
func (c *RecordingConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
