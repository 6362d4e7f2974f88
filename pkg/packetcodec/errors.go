package packetcodec

import "errors"

var (
	ErrPacketTooShort   = errors.New("packetcodec: packet shorter than header")
	ErrNotIPv4OrIPv6    = errors.New("packetcodec: unrecognized IP version")
	ErrNotUDP           = errors.New("packetcodec: not a UDP datagram")
	ErrRTCPPacket       = errors.New("packetcodec: payload is RTCP, not RTP")
	ErrUnsupportedPcap  = errors.New("packetcodec: unrecognized capture file magic")
	ErrPcapngWriteUnsup = errors.New("packetcodec: pcapng writing is not supported, only classic pcap")
)
