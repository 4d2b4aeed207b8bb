package comm_test

import (
	"bytes"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/oscilab/ds1000z/comm"
)

func tcpEchoServer(t *testing.T) string {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal("could not listen, test aborted:", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { io.Copy(conn, conn) }()
		}
	}()
	return ln.Addr().String()
}

func TestPoolHandsOutUpToCapacity(t *testing.T) {
	addr := tcpEchoServer(t)
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	}
	pool := comm.NewPool(3, time.Second, maker)
	for i := 0; i < 3; i++ {
		conn, err := pool.Get()
		if err != nil {
			t.Fatal("could not get connection:", err)
		}
		if conn == nil {
			t.Fatal("nil connection from pool")
		}
	}
	if pool.Active() != 3 {
		t.Errorf("expected 3 active connections, got %d", pool.Active())
	}
}

func TestPoolReusesReturnedConns(t *testing.T) {
	addr := tcpEchoServer(t)
	made := 0
	maker := func() (io.ReadWriteCloser, error) {
		made++
		return net.Dial("tcp", addr)
	}
	pool := comm.NewPool(1, time.Hour, maker)
	for i := 0; i < 5; i++ {
		conn, err := pool.Get()
		if err != nil {
			t.Fatal("could not get connection:", err)
		}
		pool.Put(conn)
	}
	if made != 1 {
		t.Errorf("expected a single dial across 5 leases, got %d", made)
	}
}

func TestReturnWithErrorDestroys(t *testing.T) {
	addr := tcpEchoServer(t)
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	}
	pool := comm.NewPool(1, time.Hour, maker)
	conn, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	pool.ReturnWithError(conn, io.ErrUnexpectedEOF)
	if pool.Size() != 0 {
		t.Errorf("errored connection should not remain in the pool, size=%d", pool.Size())
	}
}

func TestPoolBlocksWhenExhausted(t *testing.T) {
	addr := tcpEchoServer(t)
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	}
	pool := comm.NewPool(1, time.Second, maker)
	if _, err := pool.Get(); err != nil {
		t.Fatal("could not get connection:", err)
	}
	newConn := make(chan io.ReadWriter, 1)
	go func() {
		rw, err := pool.Get()
		if err != nil {
			log.Println("second Get errored:", err)
		}
		newConn <- rw
	}()
	select {
	case <-newConn:
		t.Fatal("failed to prevent pool overflow")
	case <-time.After(250 * time.Millisecond):
	}
}

type rwBuffer struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (b *rwBuffer) Read(p []byte) (int, error)  { return b.in.Read(p) }
func (b *rwBuffer) Write(p []byte) (int, error) { return b.out.Write(p) }

func TestTerminatorAppendsAndFrames(t *testing.T) {
	rw := &rwBuffer{}
	rw.in.WriteString("TD\n")
	term := comm.NewTerminator(rw, '\n', '\n')
	if _, err := term.Write([]byte(":TRIGger:STATus?")); err != nil {
		t.Fatal(err)
	}
	if got := rw.out.String(); got != ":TRIGger:STATus?\n" {
		t.Errorf("write not terminated, got %q", got)
	}
	buf := make([]byte, 64)
	n, err := term.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "TD\n" {
		t.Errorf("read returned %q", buf[:n])
	}
}

func TestTerminatorMissingTerminator(t *testing.T) {
	rw := &rwBuffer{}
	rw.in.WriteString("ABCD")
	term := comm.NewTerminator(rw, '\n', '\n')
	buf := make([]byte, 4)
	_, err := term.Read(buf)
	if err != comm.ErrTerminatorNotFound {
		t.Errorf("expected ErrTerminatorNotFound, got %v", err)
	}
}
