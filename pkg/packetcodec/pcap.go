package packetcodec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

const (
	classicMagicLE   = 0xa1b2c3d4 // little-endian microsecond
	classicMagicBE   = 0xd4c3b2a1 // byte-swapped microsecond
	classicMagicNsLE = 0xa1b23c4d // little-endian nanosecond
	classicMagicNsBE = 0x4d3cb2a1
	pcapngMagic      = 0x0a0d0d0a // section header block type, pcapng §4.1
)

// Record is one capture frame: its raw link-layer bytes plus the
// metadata a capture file stores alongside it.
type Record struct {
	Data      []byte
	Timestamp time.Time
	// Order reports whether this capture's byte order matches network
	// byte order (classic pcap always does; a byte-swapped classic pcap
	// magic means the file was written on a byte-swapped host and its
	// header fields, though not necessarily Ethernet/IP/UDP payload
	// bytes, should be read as HostOrder).
	Order ByteOrder
}

// PacketReader reads capture Records one at a time, independent of
// whether the underlying file is classic pcap or pcapng.
type PacketReader interface {
	ReadRecord() (Record, error)
}

type classicReader struct {
	r     *pcapgo.Reader
	order ByteOrder
}

func (c *classicReader) ReadRecord() (Record, error) {
	data, ci, err := c.r.ReadPacketData()
	if err != nil {
		return Record{}, err
	}
	return Record{Data: data, Timestamp: ci.Timestamp, Order: c.order}, nil
}

type ngReader struct {
	r *pcapgo.NgReader
}

func (n *ngReader) ReadRecord() (Record, error) {
	data, ci, err := n.r.ReadPacketData()
	if err != nil {
		return Record{}, err
	}
	return Record{Data: data, Timestamp: ci.Timestamp, Order: NetworkOrder}, nil
}

// OpenPcap inspects the first 4 bytes of r to tell classic pcap from
// pcapng and returns the matching PacketReader. pcapng files are
// read-only here: the engine's own capture output is always classic
// pcap (see PcapWriter), and Module A only needs to consume pcapng
// inputs produced by other tools, never produce them.
func OpenPcap(r io.Reader) (PacketReader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("packetcodec: reading capture magic: %w", err)
	}

	switch binary.LittleEndian.Uint32(magic) {
	case classicMagicLE, classicMagicNsLE:
		cr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("packetcodec: classic pcap header: %w", err)
		}
		return &classicReader{r: cr, order: NetworkOrder}, nil
	case classicMagicBE, classicMagicNsBE:
		cr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("packetcodec: classic pcap header: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "OpenPcap",
		}).Warn("Byte-swapped classic pcap magic detected, tagging records HostOrder")
		return &classicReader{r: cr, order: HostOrder}, nil
	case pcapngMagic:
		ngr, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("packetcodec: pcapng header: %w", err)
		}
		return &ngReader{r: ngr}, nil
	default:
		return nil, ErrUnsupportedPcap
	}
}

// PcapWriter writes classic-pcap capture records. If asked to write to
// a ".pcapng" destination, callers should still route through
// PcapWriter: the file is emitted as classic pcap regardless of the
// name, and NewPcapWriter logs a notice so the mismatch isn't silent.
type PcapWriter struct {
	w *pcapgo.Writer
}

// NewPcapWriter writes a classic-pcap global header for Ethernet-linked
// captures and returns a writer for subsequent records. destIsPcapng
// should be true when the destination path ends in ".pcapng", purely
// so the notice log line can name what's happening.
func NewPcapWriter(w io.Writer, destIsPcapng bool) (*PcapWriter, error) {
	if destIsPcapng {
		logrus.WithFields(logrus.Fields{
			"function": "NewPcapWriter",
		}).Warn("pcapng output requested; writing classic pcap framing instead")
	}

	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("packetcodec: writing pcap file header: %w", err)
	}
	return &PcapWriter{w: pw}, nil
}

// WriteRecord appends one Ethernet-framed record (as produced by
// FormatPacket plus gopacket.SerializeBuffer.Bytes) to the capture.
func (p *PcapWriter) WriteRecord(data []byte, ts time.Time) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := p.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("packetcodec: writing pcap record: %w", err)
	}
	return nil
}
