package scpi

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oscilab/ds1000z/comm"
)

// bulk responses arrive in TCP segments; as of 2020 even jumbo
// frames aren't bigger than this
const jumboFrameSize = 9000

// blockTerminatorBytes is the fixed trailer the instrument appends after
// the payload of a definite-length block.  It is not part of the payload.
const blockTerminatorBytes = 1

// MalformedBlockError indicates a response that does not parse as an
// IEEE-488.2 definite-length binary block.  It is a protocol violation,
// distinct from a dead transport, so callers can branch on it.
type MalformedBlockError struct {
	// Reason says which part of the framing was wrong
	Reason string

	// Offset is the byte index at which parsing failed
	Offset int
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("malformed binary block at byte %d: %s", e.Offset, e.Reason)
}

// DecodeBlock strips the definite-length binary block framing from raw and
// returns the payload.  The framing is
//
//	'#' <d> <d digits of payload length L> <L payload bytes> <terminator>
//
// where d is a single ASCII digit.  Bytes past the L payload bytes (the
// terminator) are discarded.  Inputs that do not follow the framing fail
// with *MalformedBlockError.  raw is not modified.
func DecodeBlock(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, &MalformedBlockError{Reason: fmt.Sprintf("response was only %d bytes, expected >2", len(raw)), Offset: 0}
	}
	if raw[0] != '#' {
		return nil, &MalformedBlockError{Reason: fmt.Sprintf("first byte was %q, expected '#'", raw[0]), Offset: 0}
	}
	if raw[1] < '0' || raw[1] > '9' {
		return nil, &MalformedBlockError{Reason: fmt.Sprintf("length digit was %q, expected 0-9", raw[1]), Offset: 1}
	}
	if raw[1] == '0' {
		// #0 is the indefinite-length form, which the scope never sends
		return nil, &MalformedBlockError{Reason: "indefinite-length block not supported", Offset: 1}
	}
	nbytesText := int(raw[1]) - 48 // shift down by 48, ASCII->int
	upper := 2 + nbytesText
	if len(raw) < upper {
		return nil, &MalformedBlockError{Reason: "header truncated before length field", Offset: len(raw)}
	}
	nbytes, err := strconv.Atoi(string(raw[2:upper]))
	if err != nil || nbytes < 0 {
		return nil, &MalformedBlockError{Reason: fmt.Sprintf("length field %q is not decimal", raw[2:upper]), Offset: 2}
	}
	if len(raw)-upper < nbytes {
		return nil, &MalformedBlockError{
			Reason: fmt.Sprintf("declared %d payload bytes, only %d present", nbytes, len(raw)-upper),
			Offset: len(raw)}
	}
	return raw[upper : upper+nbytes], nil
}

// blockLength parses the header of a partially received block and returns
// the total number of bytes the full transmission will occupy, terminator
// included.  ok is false while too few bytes have arrived to know.
func blockLength(buf []byte) (total int, ok bool, err error) {
	if len(buf) < 2 {
		return 0, false, nil
	}
	if buf[0] != '#' {
		return 0, false, &MalformedBlockError{Reason: fmt.Sprintf("first byte was %q, expected '#'", buf[0]), Offset: 0}
	}
	if buf[1] < '1' || buf[1] > '9' {
		return 0, false, &MalformedBlockError{Reason: fmt.Sprintf("length digit was %q, expected 1-9", buf[1]), Offset: 1}
	}
	nbytesText := int(buf[1]) - 48
	upper := 2 + nbytesText
	if len(buf) < upper {
		return 0, false, nil
	}
	nbytes, convErr := strconv.Atoi(string(buf[2:upper]))
	if convErr != nil || nbytes < 0 {
		return 0, false, &MalformedBlockError{Reason: fmt.Sprintf("length field %q is not decimal", buf[2:upper]), Offset: 2}
	}
	return upper + nbytes + blockTerminatorBytes, true, nil
}

// ReadBlock sends a query expecting a definite-length binary block reply
// and reads frames off the wire until the full declared length has
// arrived, then returns the decoded payload.  This is the transfer
// mechanism behind :WAVeform:DATA? and :DISPlay:DATA?.
func (s *SCPI) ReadBlock(cmds ...string) ([]byte, error) {
	s.pace()
	var ret []byte
	conn, err := s.Pool.Get()
	if err != nil {
		return ret, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	var wrap io.ReadWriter
	wrap, err = comm.NewTimeout(conn, timeout)
	if err != nil {
		return ret, err
	}
	str := strings.Join(cmds, " ")
	_, err = wrap.Write(append([]byte(str), '\n'))
	if err != nil {
		return ret, err
	}
	var (
		dataBuf []byte
		want    int
		known   bool
	)
	for {
		buf := make([]byte, jumboFrameSize)
		var n int
		n, err = wrap.Read(buf)
		if err != nil {
			return ret, err
		}
		dataBuf = append(dataBuf, buf[:n]...)
		if !known {
			want, known, err = blockLength(dataBuf)
			if err != nil {
				return ret, err
			}
		}
		if known && len(dataBuf) >= want {
			break
		}
	}
	return DecodeBlock(dataBuf)
}
