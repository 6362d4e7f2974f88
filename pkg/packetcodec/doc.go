// Package packetcodec parses and formats the IP/UDP/RTP packet views the
// rest of the engine operates on, and reads/writes them from capture
// files.
//
// A PacketView never owns a copy of its bytes: Parse slices the input
// buffer in place, and FormatPacket writes into a caller-supplied
// buffer. This mirrors how the pion/rtp Packet type works, and keeps the
// hot path (one packet per worker tick, per session) allocation-free
// outside of the RTP payload itself.
//
// Packets read from pcap/pcapng captures carry their on-wire byte order
// as a typed tag (see ByteOrder) rather than a caller-threaded boolean,
// so a packet view always knows how to re-serialize itself without the
// caller having to remember which capture it came from.
package packetcodec
