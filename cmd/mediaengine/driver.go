package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/signalogic/mediaengine/pkg/codec"
	"github.com/signalogic/mediaengine/pkg/eventlog"
	"github.com/signalogic/mediaengine/pkg/jitter"
	"github.com/signalogic/mediaengine/pkg/mixer"
	"github.com/signalogic/mediaengine/pkg/packetcodec"
	"github.com/signalogic/mediaengine/pkg/pipeline"
	"github.com/signalogic/mediaengine/pkg/scheduler"
	"github.com/signalogic/mediaengine/pkg/session"
)

// defaultSampleRate and defaultBitRate seed the one demonstration codec
// instance every dynamically-created session shares; a real deployment
// would select a codec per session's negotiated payload type instead,
// but codec selection itself is outside this engine's scope (§1
// Non-goals) — every session exercises the same external-codec
// boundary regardless of which codec a production engine would plug in.
const (
	defaultSampleRate = 16000
	defaultBitRate    = 32000
)

// Driver orchestrates one run of the engine end to end: opening capture
// inputs, classifying packets into sessions, ticking the worker pool,
// draining egress to output sinks, and handling flush/repeat per
// spec.md §4.I.
type Driver struct {
	cfg     Config
	inputs  []inputSource
	logger  *eventlog.Logger
	history *eventlog.StatsHistory

	registry *session.Registry
	codecs   *codec.Registry
	engine   *pipeline.Engine
	mixer    *mixer.Registry
	pool     *scheduler.Pool

	opusHandle codec.Handle
	mixerCfg   mixer.Config

	rateCtl *autoRateController

	outWriters []*packetcodec.PcapWriter
	outFiles   []io.Closer
	wavFiles   []io.Closer
}

// NewDriver builds a Driver from cfg but does not yet open any files or
// start workers; call Run to do that.
func NewDriver(cfg Config, logger *eventlog.Logger) (*Driver, error) {
	registry := session.NewRegistry()
	registry.DynamicMode = cfg.Mode.Has(ModeDynamicCall)

	codecs := codec.NewRegistry()
	opusCodec, err := codec.NewOpusCodec(defaultSampleRate, defaultBitRate)
	if err != nil {
		return nil, fmt.Errorf("mediaengine: creating codec: %w", err)
	}
	opusHandle, err := codecs.Register(opusCodec)
	if err != nil {
		return nil, fmt.Errorf("mediaengine: registering codec: %w", err)
	}

	ptime := cfg.rateTick()
	engine := pipeline.NewEngine(registry, codecs, ptime)

	d := &Driver{
		cfg:        cfg,
		inputs:     dedupeInputs(cfg.Inputs),
		logger:     logger,
		history:    eventlog.NewStatsHistory(64),
		registry:   registry,
		codecs:     codecs,
		engine:     engine,
		opusHandle: opusHandle,
		rateCtl:    newAutoRateController(cfg.AutoRateFloor, cfg.AutoRateCeiling),
	}

	if cfg.Mode.Has(ModeEnableStreamGroups) {
		mixerMode := mixer.ModeEnableMerging
		if cfg.Mode.Has(ModeEnableStreamGroupDeduplication) {
			mixerMode |= mixer.ModeEnableDeduplication
		}
		if cfg.Mode.Has(ModeDisableFLC) {
			mixerMode |= mixer.ModeDisableFLC
		}
		d.mixerCfg = mixer.Config{
			Mode:       mixerMode,
			SampleRate: defaultSampleRate,
			FrameSize:  defaultSampleRate * int(ptime) / int(time.Second),
		}
		d.mixer = mixer.NewRegistry(d.mixerCfg)
		engine.SetMixer(d.mixer)
	}

	pool, err := scheduler.NewPool(scheduler.PoolConfig{
		Workers: d.cfg.Threads,
		Policy:  d.cfg.schedulerPolicy(),
	}, engine)
	if err != nil {
		return nil, fmt.Errorf("mediaengine: building worker pool: %w", err)
	}
	d.pool = pool

	return d, nil
}

// jitterConfigFor builds a per-session jitter.Config from the driver's
// -j target|max<<8 flag and DISABLE_DTX_HANDLING/DISABLE_PACKET_REPAIR
// mode bits.
func (d *Driver) jitterConfigFor() jitter.Config {
	target := d.cfg.JitterTarget()
	if target <= 0 {
		target = 4
	}
	max := d.cfg.JitterMax()
	if max <= 0 {
		max = 20
	}
	return jitter.Config{
		TargetDelayPtimes: target,
		MaxDelayPtimes:    max,
		SIDRepair:         !d.cfg.Mode.Has(ModeDisablePacketRepair),
		PacketRepair:      !d.cfg.Mode.Has(ModeDisablePacketRepair),
		DTXEnable:         !d.cfg.Mode.Has(ModeDisableDTXHandling),
	}
}

// openOutputs opens one PcapWriter per configured -o path, in order.
func (d *Driver) openOutputs() error {
	for _, path := range d.cfg.Outputs {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("mediaengine: creating output %q: %w", path, err)
		}
		w, err := packetcodec.NewPcapWriter(f, false)
		if err != nil {
			f.Close()
			return fmt.Errorf("mediaengine: writing pcap header for %q: %w", path, err)
		}
		d.outWriters = append(d.outWriters, w)
		d.outFiles = append(d.outFiles, f)
	}
	return nil
}

func (d *Driver) closeOutputs() {
	for _, f := range d.outFiles {
		_ = f.Close()
	}
	for _, f := range d.wavFiles {
		_ = f.Close()
	}
}

// wavBaseName derives the on-disk name stem of the WAV outputs (the group
// sink is "<stem>_group_<id>.wav"): the first -o path with its extension
// stripped, or "mediaengine" if none was given.
func (d *Driver) wavBaseName() string {
	if len(d.cfg.Outputs) == 0 {
		return "mediaengine"
	}
	base := d.cfg.Outputs[0]
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ensureGroupSinks creates (or returns) the mixer group for groupID and,
// when ENABLE_WAV_OUTPUT is set, attaches its per-group mono WAV sink
// per §4.G.7's "write samples to per-group wav (mono)" step. Per-
// contributor and multichannel sinks are not attached here: their SSRC
// set and channel order are only known once a contributor actually
// arrives (Group.SetContributorSink/SetMultiSink take a concrete SSRC/
// order), so those sinks would need a post-first-contribute hook this
// engine's GroupContributor interface doesn't expose; see DESIGN.md.
func (d *Driver) ensureGroupSinks(groupID string, ownerID uuid.UUID) (*mixer.Group, error) {
	g, err := d.mixer.Ensure(groupID, ownerID, d.mixerCfg)
	if err != nil {
		return nil, fmt.Errorf("mediaengine: ensuring group %q: %w", groupID, err)
	}
	if !d.cfg.Mode.Has(ModeEnableWavOutput) {
		return g, nil
	}

	path := fmt.Sprintf("%s_group_%s.wav", d.wavBaseName(), groupID)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("mediaengine: creating group wav %q: %w", path, err)
	}
	d.wavFiles = append(d.wavFiles, f)
	g.SetGroupSink(mixer.NewMonoWavSink(f, int(d.mixerCfg.SampleRate)))
	return g, nil
}

// ensureSession classifies v against the registry, creating a dynamic
// session on a true miss when DYNAMIC_CALL is enabled.
func (d *Driver) ensureSession(v *packetcodec.PacketView, now time.Time) (uuid.UUID, session.Ack) {
	id, ack := d.engine.Push(v, now)
	if ack == session.AckOK || ack != session.AckSessionNotFound {
		return id, ack
	}
	if !d.registry.DynamicMode {
		return uuid.Nil, ack
	}

	kind, estErr := pipeline.EstimateCodec(firstByte(v.Payload), len(v.Payload), v.RTP.PayloadType)
	if estErr != nil {
		d.logger.Worker().Warnf(logrus.Fields{"ssrc": v.RTP.SSRC}, "Codec estimate failed for dynamic session: %v", estErr)
	} else {
		d.logger.Worker().Infof(logrus.Fields{"ssrc": v.RTP.SSRC, "codec": kind.String()}, "Estimated codec for new dynamic session")
	}

	term1 := session.Termination{
		IPType: ipTypeOf(v.SrcIP), RemoteIP: v.SrcIP, RemotePort: v.SrcPort,
		LocalIP: v.DstIP, LocalPort: v.DstPort, PayloadType: v.RTP.PayloadType,
		SampleRate: defaultSampleRate, Ptime: d.cfg.rateTick(),
	}
	term2 := term1

	sessID, ack := d.registry.CreateDynamic(term1, term2)
	if ack != session.AckOK {
		return uuid.Nil, ack
	}
	d.engine.Attach(sessID, d.jitterConfigFor())
	d.registry.SetCodecHandles(sessID, d.opusHandle, d.opusHandle)

	var groupID *uuid.UUID
	if term1.GroupID != "" {
		g := uuid.NewSHA1(uuid.Nil, []byte(term1.GroupID))
		groupID = &g
		if d.mixer != nil {
			if _, err := d.ensureGroupSinks(term1.GroupID, sessID); err != nil {
				d.logger.Worker().Warnf(logrus.Fields{"group": term1.GroupID, "error": err}, "Failed to attach group sinks")
			}
		}
	}
	if _, err := d.pool.Assign(sessID, groupID); err != nil {
		d.logger.Worker().Warnf(logrus.Fields{"session": sessID, "error": err}, "Failed to assign new session to a worker")
	}

	return d.engine.Push(v, now)
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func ipTypeOf(ip net.IP) session.IPType {
	if ip.To4() != nil {
		return session.IPTypeV4
	}
	return session.IPTypeV6
}

// Run drives the engine to completion: opens inputs/outputs, starts the
// worker pool, replays every capture record through the pipeline, drains
// egress to the output sinks, and repeats the whole pass Config.Repeat
// times (at least twice when REPEAT_INPUTS is set).
func (d *Driver) Run(ctx context.Context, commands <-chan rune) error {
	if err := d.openOutputs(); err != nil {
		return err
	}
	defer d.closeOutputs()

	d.pool.Start(ctx)
	defer func() { _ = d.pool.Shutdown(ctx) }()

	repeats := d.cfg.Repeat
	if repeats <= 0 {
		repeats = 1
	}
	if d.cfg.Mode.Has(ModeRepeatInputs) && repeats == 1 {
		repeats = 2
	}

	for pass := 1; pass <= repeats; pass++ {
		if pass > 1 {
			d.logger.Infof(logrus.Fields{"pass": pass}, "repeating input set")
		}
		if err := d.runOnePass(ctx, commands); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runOnePass(ctx context.Context, commands <-chan rune) error {
	tick := time.NewTicker(d.cfg.rateTick())
	defer tick.Stop()

	readers := make([]packetcodec.PacketReader, len(d.inputs))
	for i, in := range d.inputs {
		f, err := os.Open(in.Path)
		if err != nil {
			return fmt.Errorf("mediaengine: opening input %q: %w", in.Path, err)
		}
		defer f.Close()
		r, err := packetcodec.OpenPcap(f)
		if err != nil {
			return fmt.Errorf("mediaengine: reading input %q: %w", in.Path, err)
		}
		readers[i] = r
	}

	done := false
	for !done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if ok && handleKeyboardCommand(cmd, d) {
				return nil
			}
		case <-tick.C:
		}

		if d.cfg.Mode.Has(ModeAutoAdjustPushRate) {
			d.sampleAutoRate()
		}

		anyInput := false
		for i, r := range readers {
			rec, err := r.ReadRecord()
			if err != nil {
				continue
			}
			anyInput = true
			view, err := packetcodec.Parse(rec.Data, rec.Order)
			if err != nil {
				continue
			}
			in := d.inputs[i]
			view.SrcPort, view.DstPort = in.rewritePorts(view.SrcPort, view.DstPort)
			view.RTP.SSRC = in.rewriteSSRC(view.RTP.SSRC)

			if _, ack := d.ensureSession(view, rec.Timestamp); ack != session.AckOK && ack != session.AckSessionNotFound {
				d.logger.Worker().Warnf(logrus.Fields{"ack": ack.String()}, "Dropping unclassifiable packet")
			}
		}

		d.drainEgress()

		if !anyInput {
			done = true
		}
	}

	d.flushAndDrain(ctx)
	d.writeStatsHistory()
	return nil
}

// sampleAutoRate feeds the current egress levels of every live session
// to the rate controller.
func (d *Driver) sampleAutoRate() {
	ids := d.registry.IDs()
	levels := make([]egressLevel, 0, len(ids))
	for _, id := range ids {
		length, capacity, ok := d.engine.EgressLevel(id)
		if !ok {
			continue
		}
		levels = append(levels, egressLevel{length: length, capacity: capacity})
	}
	d.rateCtl.Sample(levels)
}

// drainEgress pulls every live session's ready output and writes it to
// the configured output(s), round-robining across multiple -o targets by
// session index when more than one is configured.
func (d *Driver) drainEgress() {
	if len(d.outWriters) == 0 {
		return
	}
	ids := d.registry.IDs()
	for i, id := range ids {
		pkts := d.engine.Pull(id, pipeline.CategoryAny, 64)
		if len(pkts) == 0 {
			continue
		}
		w := d.outWriters[i%len(d.outWriters)]
		sess, ack := d.registry.Get(id)
		if ack != session.AckOK {
			continue
		}
		for _, p := range pkts {
			d.writeEncodedPacket(w, sess, p)
		}
	}
}

func (d *Driver) writeEncodedPacket(w *packetcodec.PcapWriter, sess *session.Session, p pipeline.EncodedPacket) {
	buf := gopacket.NewSerializeBuffer()
	hdr := rtp.Header{
		Version:        2,
		Marker:         p.Marker,
		PayloadType:    sess.Term1.PayloadType,
		SequenceNumber: p.Seq,
		Timestamp:      p.Timestamp,
		SSRC:           p.SSRC,
	}
	if err := packetcodec.FormatPacket(buf, sess.Term1.LocalIP, sess.Term1.RemoteIP,
		sess.Term1.LocalPort, sess.Term1.RemotePort, hdr, p.Payload); err != nil {
		d.logger.Worker().Warnf(logrus.Fields{"session": sess.ID, "error": err}, "Failed to format egress packet")
		return
	}
	if err := w.WriteRecord(buf.Bytes(), p.At); err != nil {
		d.logger.Worker().Warnf(logrus.Fields{"session": sess.ID, "error": err}, "Failed to write egress record")
	}
}

// flushAndDrain requests every session flush and waits (bounded by a
// short deadline per §4.B "actual removal occurs after worker confirms
// all queues empty") for the registry to reap them.
func (d *Driver) flushAndDrain(ctx context.Context) {
	for _, id := range d.registry.IDs() {
		d.registry.Delete(id)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if d.registry.Reap(); d.registry.Len() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (d *Driver) writeStatsHistory() {
	if d.history == nil {
		return
	}
	snap, ok := d.history.Latest()
	if !ok {
		return
	}
	_ = eventlog.WritePacketStatsHistoryLog(os.Stdout, snap)
}

// Close unregisters the driver's Opus codec handle. Call after Run; Run
// itself shuts the worker pool down.
func (d *Driver) Close() {
	if d.opusHandle != 0 {
		d.codecs.Unregister(d.opusHandle)
	}
}
