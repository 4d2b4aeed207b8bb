/*Package comm provides connection plumbing for talking to lab instruments.

The scope is a single-session resource: it services one request at a time
and drops the session if it is connection-thrashed.  Usage therefore boils
down to:

	maker := comm.BackingOffTCPConnMaker("192.168.1.25:5555", 3*time.Second)
	pool := comm.NewPool(1, time.Hour, maker)

and then Get/ReturnWithError around each round trip.  Terminator and
Timeout wrap a leased connection with newline framing and deadlines.
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when an operation is attempted on a nil connection
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc that dials addr with an
// exponential backoff.  Some instruments refuse connections for a while
// after a session closes; thrashing them makes it worse.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		wasTimeout := false
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return err
				}
				wasTimeout = true
				return nil
			}
			return nil
		}
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = 25 * time.Millisecond
		policy.RandomizationFactor = 0.
		policy.Multiplier = 2.
		policy.MaxInterval = 1 * time.Second
		policy.MaxElapsedTime = 3 * time.Second
		err := backoff.Retry(op, policy)
		if err == nil && !wasTimeout {
			return conn, nil
		}
		if wasTimeout {
			return nil, fmt.Errorf("connection timeout to %s", addr)
		}
		return nil, err
	}
}

// SerialConnMaker returns a CreationFunc that opens the serial port
// described by conf.  Used for scopes hung off an RS-232 adapter.
func SerialConnMaker(conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(conf)
	}
}

// Terminator wraps a ReadWriter with transmission and receipt termination
// bytes.  Writes have the Tx terminator appended if absent; Reads consume
// from the underlying stream until the Rx terminator is seen.
type Terminator struct {
	rw io.ReadWriter
	tx byte
	rx byte
}

// NewTerminator returns a Terminator wrapping rw
func NewTerminator(rw io.ReadWriter, tx, rx byte) *Terminator {
	return &Terminator{rw: rw, tx: tx, rx: rx}
}

// Write sends b with the Tx terminator appended
func (t *Terminator) Write(b []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	if len(b) == 0 || b[len(b)-1] != t.tx {
		b = append(b, t.tx)
	}
	return t.rw.Write(b)
}

// Read fills b from the underlying stream until the Rx terminator arrives
// or b is full.  The terminator is included in the count so callers can
// strip it; a full buffer without one is ErrTerminatorNotFound.
func (t *Terminator) Read(b []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	total := 0
	for total < len(b) {
		n, err := t.rw.Read(b[total:])
		total += n
		if err != nil {
			return total, err
		}
		if total > 0 && b[total-1] == t.rx {
			return total, nil
		}
	}
	return total, ErrTerminatorNotFound
}

// deadliner is the subset of net.Conn needed to apply timeouts
type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// timeoutWrapper arms deadlines on the underlying connection before each I/O
type timeoutWrapper struct {
	rw      io.ReadWriter
	d       deadliner
	timeout time.Duration
}

// NewTimeout wraps rw such that each Read or Write must complete within
// timeout.  If neither rw nor the connection inside a Terminator can carry
// deadlines (e.g. a serial port, which has its own timeout), rw is
// returned unchanged.
func NewTimeout(rw io.ReadWriter, timeout time.Duration) (io.ReadWriter, error) {
	inner := rw
	if t, ok := rw.(*Terminator); ok {
		inner = t.rw
	}
	if d, ok := inner.(deadliner); ok {
		return &timeoutWrapper{rw: rw, d: d, timeout: timeout}, nil
	}
	return rw, nil
}

func (t *timeoutWrapper) Read(b []byte) (int, error) {
	err := t.d.SetReadDeadline(time.Now().Add(t.timeout))
	if err != nil {
		return 0, err
	}
	return t.rw.Read(b)
}

func (t *timeoutWrapper) Write(b []byte) (int, error) {
	err := t.d.SetWriteDeadline(time.Now().Add(t.timeout))
	if err != nil {
		return 0, err
	}
	return t.rw.Write(b)
}
