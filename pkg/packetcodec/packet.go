package packetcodec

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// PacketView is a parsed IP/UDP/RTP packet, sliced from the original
// capture buffer rather than copied. Callers that need to retain a
// PacketView past the lifetime of its source buffer must copy Payload
// themselves.
type PacketView struct {
	Order ByteOrder

	SrcIP   net.IP
	DstIP   net.IP
	SrcPort uint16
	DstPort uint16

	RTP rtp.Header

	// Payload is the RTP payload: encoded audio, a DTMF event, or a
	// comfort-noise (SID) frame, per RTP.PayloadType and the session's
	// termination info.
	Payload []byte
}

// Parse decodes a link-layer capture record (Ethernet, with or without a
// single 802.1Q VLAN tag) down to an RTP packet view. gopacket handles
// the VLAN tag transparently as part of its Ethernet decode chain, so
// the 4-byte tag never needs to be walked by hand.
//
// Packets whose UDP payload decodes as RTCP (PT 72..82, RFC 3550 §6) are
// rejected with ErrRTCPPacket rather than being handed back as a
// malformed RTP packet; callers that also want RTCP should inspect the
// record before calling Parse.
func Parse(data []byte, order ByteOrder) (*PacketView, error) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, ErrNotUDP
	}
	udp, _ := udpLayer.(*layers.UDP)

	view := &PacketView{Order: order}

	if ip4 := pkt.Layer(layers.LayerTypeIPv4); ip4 != nil {
		l := ip4.(*layers.IPv4)
		view.SrcIP, view.DstIP = l.SrcIP, l.DstIP
	} else if ip6 := pkt.Layer(layers.LayerTypeIPv6); ip6 != nil {
		l := ip6.(*layers.IPv6)
		view.SrcIP, view.DstIP = l.SrcIP, l.DstIP
	} else {
		return nil, ErrNotIPv4OrIPv6
	}

	view.SrcPort = uint16(udp.SrcPort)
	view.DstPort = uint16(udp.DstPort)

	if err := rejectRTCP(udp.Payload); err != nil {
		return nil, err
	}

	var h rtp.Packet
	if err := h.Unmarshal(udp.Payload); err != nil {
		return nil, fmt.Errorf("packetcodec: rtp unmarshal: %w", err)
	}
	view.RTP = h.Header
	view.Payload = h.Payload
	if order == HostOrder {
		fixHostOrderHeader(&view.RTP)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Parse",
		"src":      view.SrcIP.String(),
		"dst":      view.DstIP.String(),
		"ssrc":     view.RTP.SSRC,
		"seq":      view.RTP.SequenceNumber,
		"pt":       view.RTP.PayloadType,
	}).Debug("Parsed packet")

	return view, nil
}

// rejectRTCP probes a UDP payload's first byte against the RFC 3550 §6
// RTCP packet-type range (72..82) and, if it falls in range, confirms
// the guess by attempting an rtcp.Unmarshal. A bare heuristic on PT
// would misclassify an RTP stream using a dynamic payload type that
// happens to collide with the RTCP range, so the unmarshal is the
// authority, not the byte check.
func rejectRTCP(payload []byte) error {
	if len(payload) < 2 {
		return nil
	}
	pt := payload[1] & 0x7f
	if pt < 72 || pt > 82 {
		return nil
	}
	if _, err := rtcp.Unmarshal(payload); err == nil {
		return ErrRTCPPacket
	}
	return nil
}

// FormatPacket serializes an RTP header and payload, with the given
// source/destination identity, into buf as an Ethernet/IP/UDP/RTP frame
// suitable for a classic-pcap write record.
//
// FormatPacket always emits network byte order and an untagged Ethernet
// frame; ByteOrder on the view only affects how captured frames are
// interpreted, not how the engine re-emits them.
func FormatPacket(buf gopacket.SerializeBuffer, srcIP, dstIP net.IP, srcPort, dstPort uint16, hdr rtp.Header, payload []byte) error {
	rtpPkt := rtp.Packet{Header: hdr, Payload: payload}
	rtpBytes, err := rtpPkt.Marshal()
	if err != nil {
		return fmt.Errorf("packetcodec: rtp marshal: %w", err)
	}

	ipLayer := ipLayerFor(srcIP, dstIP)
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}

	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4}
	if v4, ok := ipLayer.(*layers.IPv4); ok {
		udp.SetNetworkLayerForChecksum(v4)
	} else if v6, ok := ipLayer.(*layers.IPv6); ok {
		udp.SetNetworkLayerForChecksum(v6)
		eth.EthernetType = layers.EthernetTypeIPv6
	}

	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	layersToSerialize := []gopacket.SerializableLayer{eth, ipLayer, udp, gopacket.Payload(rtpBytes)}
	if err := gopacket.SerializeLayers(buf, opts, layersToSerialize...); err != nil {
		return fmt.Errorf("packetcodec: serialize: %w", err)
	}
	return nil
}

// fixHostOrderHeader corrects RTP sequence number, timestamp, and SSRC
// fields that pion/rtp parsed assuming network byte order, for captures
// tagged HostOrder. The first RTP octet (version/padding/extension/CSRC
// count) and second octet (marker/payload type) are single bytes and
// need no correction.
func fixHostOrderHeader(h *rtp.Header) {
	h.SequenceNumber = swap16(h.SequenceNumber)
	h.Timestamp = swap32(h.Timestamp)
	h.SSRC = swap32(h.SSRC)
}

func ipLayerFor(srcIP, dstIP net.IP) gopacket.SerializableLayer {
	if v4 := srcIP.To4(); v4 != nil {
		return &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    srcIP,
			DstIP:    dstIP,
		}
	}
	return &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      srcIP,
		DstIP:      dstIP,
	}
}
