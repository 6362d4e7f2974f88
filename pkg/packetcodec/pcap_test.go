package packetcodec

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEthernetFrame(t *testing.T, seq uint16) []byte {
	t.Helper()
	hdr := rtp.Header{
		Version:        2,
		PayloadType:    8,
		SequenceNumber: seq,
		Timestamp:      160000 + uint32(seq),
		SSRC:           0xdeadbeef,
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, FormatPacket(buf, net.ParseIP("10.0.0.1").To4(), net.ParseIP("10.0.0.2").To4(),
		5004, 5006, hdr, []byte{0x01, 0x02, 0x03, 0x04}))
	// Copy out: buf's backing array is reused/invalidated by later calls.
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out
}

// TestPcapRoundTripIsIdempotent writes several records through PcapWriter
// and reads them back via OpenPcap, confirming every byte and RTP field
// survives the round trip unchanged.
func TestPcapRoundTripIsIdempotent(t *testing.T) {
	frames := [][]byte{sampleEthernetFrame(t, 1), sampleEthernetFrame(t, 2), sampleEthernetFrame(t, 3)}

	var out bytes.Buffer
	w, err := NewPcapWriter(&out, false)
	require.NoError(t, err)
	base := time.Now()
	for i, f := range frames {
		require.NoError(t, w.WriteRecord(f, base.Add(time.Duration(i)*time.Millisecond)))
	}

	reader, err := OpenPcap(&out)
	require.NoError(t, err)

	for i, want := range frames {
		rec, err := reader.ReadRecord()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want, rec.Data, "record %d bytes must round-trip exactly", i)
		assert.Equal(t, NetworkOrder, rec.Order)

		view, err := Parse(rec.Data, rec.Order)
		require.NoError(t, err)
		assert.Equal(t, uint16(i+1), view.RTP.SequenceNumber)
	}

	_, err = reader.ReadRecord()
	assert.Error(t, err, "reader must report EOF once every record is consumed")
}

// buildClassicPcapBytes hand-assembles a classic-pcap file (24-byte
// global header + one 16-byte record header + data) in order, the byte
// order a given magic implies, to exercise OpenPcap's LE/BE magic
// detection without relying on PcapWriter (which only ever emits the
// native/LE form).
func buildClassicPcapBytes(order binary.ByteOrder, magic uint32, data []byte, ts time.Time) []byte {
	var buf bytes.Buffer
	header := make([]byte, 24)
	order.PutUint32(header[0:4], magic)
	order.PutUint16(header[4:6], 2)
	order.PutUint16(header[6:8], 4)
	order.PutUint32(header[8:12], 0)
	order.PutUint32(header[12:16], 0)
	order.PutUint32(header[16:20], 65535)
	order.PutUint32(header[20:24], 1) // LINKTYPE_ETHERNET
	buf.Write(header)

	rec := make([]byte, 16)
	order.PutUint32(rec[0:4], uint32(ts.Unix()))
	order.PutUint32(rec[4:8], uint32(ts.Nanosecond()/1000))
	order.PutUint32(rec[8:12], uint32(len(data)))
	order.PutUint32(rec[12:16], uint32(len(data)))
	buf.Write(rec)
	buf.Write(data)
	return buf.Bytes()
}

func TestOpenPcapReadsLittleEndianClassicMagic(t *testing.T) {
	frame := sampleEthernetFrame(t, 7)
	raw := buildClassicPcapBytes(binary.LittleEndian, classicMagicLE, frame, time.Now())

	reader, err := OpenPcap(bytes.NewReader(raw))
	require.NoError(t, err)

	rec, err := reader.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, frame, rec.Data)
	assert.Equal(t, NetworkOrder, rec.Order)
}

func TestOpenPcapReadsByteSwappedClassicMagicAsHostOrder(t *testing.T) {
	frame := sampleEthernetFrame(t, 9)
	raw := buildClassicPcapBytes(binary.BigEndian, classicMagicLE, frame, time.Now())

	reader, err := OpenPcap(bytes.NewReader(raw))
	require.NoError(t, err)

	rec, err := reader.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, frame, rec.Data)
	assert.Equal(t, HostOrder, rec.Order, "byte-swapped classic pcap magic must tag records HostOrder")
}

// --- minimal hand-built pcapng fixture (Section Header + Interface
// Description + one Enhanced Packet Block), little-endian, no options ---

func appendPcapngBlock(buf *bytes.Buffer, blockType uint32, body []byte) {
	total := uint32(4 + 4 + len(body) + 4)
	head := make([]byte, 8)
	binary.LittleEndian.PutUint32(head[0:4], blockType)
	binary.LittleEndian.PutUint32(head[4:8], total)
	buf.Write(head)
	buf.Write(body)
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, total)
	buf.Write(trailer)
}

func pcapngSectionHeaderBody() []byte {
	b := make([]byte, 4+2+2+8)
	binary.LittleEndian.PutUint32(b[0:4], 0x1A2B3C4D)  // byte-order magic
	binary.LittleEndian.PutUint16(b[4:6], 1)           // major version
	binary.LittleEndian.PutUint16(b[6:8], 0)           // minor version
	binary.LittleEndian.PutUint64(b[8:16], ^uint64(0)) // section length: unspecified
	return b
}

func pcapngInterfaceDescriptionBody() []byte {
	b := make([]byte, 2+2+4)
	binary.LittleEndian.PutUint16(b[0:2], 1) // LINKTYPE_ETHERNET
	binary.LittleEndian.PutUint16(b[2:4], 0) // reserved
	binary.LittleEndian.PutUint32(b[4:8], 65535)
	return b
}

func pcapngEnhancedPacketBody(data []byte, tsMicros uint64) []byte {
	padded := make([]byte, ((len(data)+3)/4)*4)
	copy(padded, data)
	b := make([]byte, 4+4+4+4+4+len(padded))
	binary.LittleEndian.PutUint32(b[0:4], 0) // interface id
	binary.LittleEndian.PutUint32(b[4:8], uint32(tsMicros>>32))
	binary.LittleEndian.PutUint32(b[8:12], uint32(tsMicros))
	binary.LittleEndian.PutUint32(b[12:16], uint32(len(data)))
	binary.LittleEndian.PutUint32(b[16:20], uint32(len(data)))
	copy(b[20:], padded)
	return b
}

func buildMinimalPcapng(data []byte, at time.Time) []byte {
	var buf bytes.Buffer
	appendPcapngBlock(&buf, pcapngMagic, pcapngSectionHeaderBody())
	appendPcapngBlock(&buf, 0x00000001, pcapngInterfaceDescriptionBody())
	appendPcapngBlock(&buf, 0x00000006, pcapngEnhancedPacketBody(data, uint64(at.UnixMicro())))
	return buf.Bytes()
}

func TestOpenPcapReadsPcapngRecord(t *testing.T) {
	frame := sampleEthernetFrame(t, 11)
	raw := buildMinimalPcapng(frame, time.Now())

	reader, err := OpenPcap(bytes.NewReader(raw))
	require.NoError(t, err)

	rec, err := reader.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, frame, rec.Data)
	assert.Equal(t, NetworkOrder, rec.Order)

	view, err := Parse(rec.Data, rec.Order)
	require.NoError(t, err)
	assert.Equal(t, uint16(11), view.RTP.SequenceNumber)
}

func TestOpenPcapUnrecognizedMagicErrors(t *testing.T) {
	_, err := OpenPcap(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0}))
	assert.ErrorIs(t, err, ErrUnsupportedPcap)
}
