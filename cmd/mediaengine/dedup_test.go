package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeInputsLeavesFirstOccurrenceUnmodified(t *testing.T) {
	out := dedupeInputs([]string{"a.pcap", "b.pcap"})
	assert.Equal(t, inputSource{Path: "a.pcap"}, out[0])
	assert.Equal(t, inputSource{Path: "b.pcap"}, out[1])
}

func TestDedupeInputsOffsetsRepeatedPaths(t *testing.T) {
	out := dedupeInputs([]string{"a.pcap", "a.pcap", "a.pcap"})

	a := assert.New(t)
	a.Equal(inputSource{Path: "a.pcap"}, out[0])
	a.Equal(inputSource{Path: "a.pcap", PortOffset: 1000, SSRCOffset: 1 << 16}, out[1])
	a.Equal(inputSource{Path: "a.pcap", PortOffset: 2000, SSRCOffset: 2 << 16}, out[2])
}

func TestRewritePortsAddsOffsetToBothPorts(t *testing.T) {
	s := inputSource{PortOffset: 1000}
	src, dst := s.rewritePorts(5000, 5002)
	assert.EqualValues(t, 6000, src)
	assert.EqualValues(t, 6002, dst)
}

func TestRewriteSSRCXorsOffset(t *testing.T) {
	s := inputSource{SSRCOffset: 0xABCD}
	got := s.rewriteSSRC(0x1234)
	assert.Equal(t, uint32(0x1234^0xABCD), got)
}

func TestRewriteSSRCIsNoopForFirstOccurrence(t *testing.T) {
	s := inputSource{}
	assert.Equal(t, uint32(0x1234), s.rewriteSSRC(0x1234))
}
