package packetcodec

// ByteOrder tags the on-wire byte order a PacketView was captured with.
// Classic pcap files are always network byte order; some synthetic or
// host-dumped captures in the wild store the IP/UDP header fields in
// host order instead, and the only reliable way to tell is the magic
// number on the capture file itself. Carrying the tag on the view keeps
// the distinction explicit instead of threading a "swapped bool"
// parameter through every header accessor.
type ByteOrder int

const (
	// NetworkOrder is standard big-endian wire format (RFC 791/768/3550).
	NetworkOrder ByteOrder = iota
	// HostOrder is little-endian-captured header fields, as produced by
	// some host-native packet dumpers. Payload bytes are unaffected;
	// only the fixed-width header fields need byte-swapping on read.
	HostOrder
)

func (b ByteOrder) String() string {
	if b == HostOrder {
		return "host"
	}
	return "network"
}

func swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

func swap32(v uint32) uint32 {
	return v<<24 | (v<<8)&0x00ff0000 | (v>>8)&0x0000ff00 | v>>24
}
