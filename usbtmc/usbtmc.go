/*Package usbtmc implements the bulk transfer mode of the USB Test and
Measurement Class, as spoken by the USB device port on the back of
Rigol DS1000Z series oscilloscopes.

Outgoing messages are DEV_DEP_MSG_OUT datagrams: a 12 byte header, the
message bytes, then zero padding to a 4 byte boundary.  Incoming data
is requested with a REQUEST_DEV_DEP_MSG_IN datagram and arrives as a
DEV_DEP_MSG_IN response whose header carries the payload length.

The concrete Device type wraps this exchange behind io.ReadWriteCloser
so it can stand in for a TCP socket anywhere one is accepted.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"
)

const (
	// Rigol's USB vendor ID and the DS1000Z series product ID
	VendorRigol    = 0x1ab1
	ProductDS1000Z = 0x04ce

	msgDevDepOut       = 0x01 // DEV_DEP_MSG_OUT
	msgRequestDevDepIn = 0x02 // REQUEST_DEV_DEP_MSG_IN
	msgDevDepIn        = 0x02 // DEV_DEP_MSG_IN, shares the request's value

	headerLen = 12
	alignment = 4

	// transfer size requested per bulk-in exchange
	readChunk = 1024 * 64
)

// bTagGen is a concurrent-safe bTag generator.  Tags run 1..255 and
// wrap around zero, which the standard reserves.
type bTagGen struct {
	sync.Mutex
	value byte
}

func (b *bTagGen) next() byte {
	b.Lock()
	defer b.Unlock()
	b.value++
	if b.value == 0 {
		b.value = 1
	}
	return b.value
}

// invbTag computes the bitwise inversion of a bTag, header offset 2
func invbTag(b byte) byte {
	return b ^ 0xff
}

// encBulkOutHeader creates a DEV_DEP_MSG_OUT header (standard Table 3).
// datalen counts message bytes exclusive of header and padding; the
// EOM bit is always set, multi-datagram messages are not used here.
func encBulkOutHeader(tag byte, datalen int) [headerLen]byte {
	var out [headerLen]byte
	out[0] = msgDevDepOut
	out[1] = tag
	out[2] = invbTag(tag)
	binary.LittleEndian.PutUint32(out[4:8], uint32(datalen))
	out[8] = 0x01 // EOM
	return out
}

// encBulkInHeader creates a REQUEST_DEV_DEP_MSG_IN header (standard
// Table 4).  A nil terminator disables the termination character.
func encBulkInHeader(tag byte, bufsize int, terminator *byte) [headerLen]byte {
	var out [headerLen]byte
	out[0] = msgRequestDevDepIn
	out[1] = tag
	out[2] = invbTag(tag)
	binary.LittleEndian.PutUint32(out[4:8], uint32(bufsize))
	if terminator != nil {
		out[8] = 0x02 // TermCharEnabled
		out[9] = *terminator
	}
	return out
}

// decBulkInHeader extracts the payload from a DEV_DEP_MSG_IN response.
// The payload may be shorter than the raw bulk read, which the device
// pads to its packet size.
func decBulkInHeader(raw []byte) ([]byte, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("usbtmc: response %d bytes, need at least %d for a header", len(raw), headerLen)
	}
	if raw[0] != msgDevDepIn {
		return nil, fmt.Errorf("usbtmc: unexpected MsgID %#02x in response", raw[0])
	}
	if raw[2] != invbTag(raw[1]) {
		return nil, fmt.Errorf("usbtmc: corrupt response, bTagInverse does not match bTag %#02x", raw[1])
	}
	size := int(binary.LittleEndian.Uint32(raw[4:8]))
	body := raw[headerLen:]
	if size > len(body) {
		return nil, fmt.Errorf("usbtmc: header claims %d payload bytes, only %d present", size, len(body))
	}
	return body[:size], nil
}

// Device is a USBTMC instrument presented as an io.ReadWriteCloser
type Device struct {
	tagger bTagGen
	ctx    *gousb.Context
	device *gousb.Device
	iface  *gousb.Interface
	done   func()
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint

	// unread payload from the last bulk-in exchange
	pending []byte
}

// Open connects to a USBTMC device by its vendor and product ID
func Open(vid, pid uint16) (*Device, error) {
	d := &Device{ctx: gousb.NewContext()}
	var err error
	d.device, err = d.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		d.ctx.Close()
		return nil, err
	}
	if d.device == nil {
		d.ctx.Close()
		return nil, fmt.Errorf("usbtmc: no device with VID:PID %04x:%04x", vid, pid)
	}
	if err = d.device.SetAutoDetach(true); err != nil {
		d.Close()
		return nil, err
	}
	d.iface, d.done, err = d.device.DefaultInterface()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.in, err = firstEndpoint(d.iface, gousb.EndpointDirectionIn)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.out, err = firstOutEndpoint(d.iface)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func firstEndpoint(iface *gousb.Interface, dir gousb.EndpointDirection) (*gousb.InEndpoint, error) {
	for _, desc := range iface.Setting.Endpoints {
		if desc.Direction == dir && desc.TransferType == gousb.TransferTypeBulk {
			return iface.InEndpoint(desc.Number)
		}
	}
	return nil, fmt.Errorf("usbtmc: interface has no bulk-in endpoint")
}

func firstOutEndpoint(iface *gousb.Interface) (*gousb.OutEndpoint, error) {
	for _, desc := range iface.Setting.Endpoints {
		if desc.Direction == gousb.EndpointDirectionOut && desc.TransferType == gousb.TransferTypeBulk {
			return iface.OutEndpoint(desc.Number)
		}
	}
	return nil, fmt.Errorf("usbtmc: interface has no bulk-out endpoint")
}

// Write sends p as a single DEV_DEP_MSG_OUT datagram
func (d *Device) Write(p []byte) (int, error) {
	hdr := encBulkOutHeader(d.tagger.next(), len(p))
	buf := make([]byte, 0, headerLen+len(p)+alignment)
	buf = append(buf, hdr[:]...)
	buf = append(buf, p...)
	if residual := len(buf) % alignment; residual > 0 {
		buf = append(buf, make([]byte, alignment-residual)...)
	}
	if _, err := d.out.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read fills p with instrument data, issuing a bulk-in request when no
// payload is buffered from the previous exchange
func (d *Device) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		payload, err := d.request()
		if err != nil {
			return 0, err
		}
		if len(payload) == 0 {
			return 0, io.EOF
		}
		d.pending = payload
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *Device) request() ([]byte, error) {
	term := byte('\n')
	hdr := encBulkInHeader(d.tagger.next(), readChunk, &term)
	if _, err := d.out.Write(hdr[:]); err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+readChunk)
	n, err := d.in.Read(buf)
	if err != nil {
		return nil, err
	}
	payload, err := decBulkInHeader(buf[:n])
	if err != nil {
		return nil, err
	}
	// copy out: buf is oversized and would pin its whole backing array
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Close releases the interface and the device
func (d *Device) Close() error {
	if d.done != nil {
		d.done()
	}
	var err error
	if d.device != nil {
		err = d.device.Close()
	}
	if d.ctx != nil {
		if cerr := d.ctx.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ConnMaker adapts Open to the signature connection pools expect
func ConnMaker(vid, pid uint16) func() (io.ReadWriteCloser, error) {
	return func() (io.ReadWriteCloser, error) {
		return Open(vid, pid)
	}
}
