package ds1000z

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oscilab/ds1000z/comm"
	"github.com/oscilab/ds1000z/scpi"
)

// scriptConn plays the instrument side of a session: writes are logged,
// and queries with scripted replies queue bytes for the next read.
type scriptConn struct {
	replies map[string][][]byte
	rbuf    bytes.Buffer
	log     []string
}

func newScript() *scriptConn {
	return &scriptConn{replies: map[string][][]byte{}}
}

// on queues a text reply (newline appended) for each occurrence of cmd
func (c *scriptConn) on(cmd string, resps ...string) {
	for _, r := range resps {
		c.replies[cmd] = append(c.replies[cmd], []byte(r+"\n"))
	}
}

// onBlock queues a definite-length binary block reply for cmd
func (c *scriptConn) onBlock(cmd string, payloads ...[]byte) {
	for _, p := range payloads {
		framed := append([]byte(fmt.Sprintf("#9%09d", len(p))), p...)
		framed = append(framed, '\n')
		c.replies[cmd] = append(c.replies[cmd], framed)
	}
}

func (c *scriptConn) Write(p []byte) (int, error) {
	cmd := strings.TrimSuffix(string(p), "\n")
	c.log = append(c.log, cmd)
	if q := c.replies[cmd]; len(q) > 0 {
		c.rbuf.Write(q[0])
		c.replies[cmd] = q[1:]
	}
	return len(p), nil
}

func (c *scriptConn) Read(p []byte) (int, error) {
	if c.rbuf.Len() == 0 {
		return 0, io.EOF
	}
	return c.rbuf.Read(p)
}

func (c *scriptConn) Close() error { return nil }

// wrote reports whether cmd was sent, and at what position in the log
func (c *scriptConn) wrote(cmd string) (int, bool) {
	for i, w := range c.log {
		if w == cmd {
			return i, true
		}
	}
	return -1, false
}

func scopeWith(c *scriptConn) *Scope {
	pool := comm.NewPool(1, time.Minute, func() (io.ReadWriteCloser, error) { return c, nil })
	return &Scope{SCPI: scpi.SCPI{Pool: pool}}
}
