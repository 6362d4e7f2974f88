package main

import (
	"bufio"
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// keyboardCommands reads single-character commands from r (q/s/p/o/d/t/+/-,
// per spec.md §4.I) and forwards them on the returned channel until r hits
// EOF or ctx is canceled. The channel is closed on exit so a range loop
// over it terminates cleanly.
func keyboardCommands(ctx context.Context, r io.Reader) <-chan rune {
	out := make(chan rune, 1)
	go func() {
		defer close(out)
		br := bufio.NewReader(r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				return
			}
			if b == '\n' || b == '\r' {
				continue
			}
			select {
			case out <- rune(b):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// handleKeyboardCommand applies one keyboard command to the driver and
// reports whether the current pass should stop (q, and the one-shot 's'
// stop-after-current-pass request).
func handleKeyboardCommand(cmd rune, d *Driver) bool {
	switch cmd {
	case 'q':
		d.logger.Infof(nil, "quit requested from keyboard")
		return true
	case 's':
		d.logger.Infof(nil, "stop-after-pass requested from keyboard")
		return true
	case 'p':
		d.logger.Infof(logrus.Fields{"sessions": d.registry.Len()}, "status: sessions live")
	case 'o':
		d.dumpQueueOverview()
	case 'd':
		d.dumpJitterStats()
	case 't':
		d.dumpThreadInfo()
	case '+':
		d.rateCtl.limiter.SetLimit(d.rateCtl.limiter.Limit() + d.rateCtl.step)
		d.logger.Infof(nil, "rate bumped by keyboard command")
	case '-':
		d.rateCtl.limiter.SetLimit(d.rateCtl.floor)
		d.logger.Infof(nil, "rate reset to floor by keyboard command")
	}
	return false
}

// dumpQueueOverview logs each live session's egress queue occupancy,
// the keyboard 'o' command's informational view.
func (d *Driver) dumpQueueOverview() {
	for _, id := range d.registry.IDs() {
		length, capacity, ok := d.engine.EgressLevel(id)
		if !ok {
			continue
		}
		d.logger.Infof(logrus.Fields{"session": id, "egress_len": length, "egress_cap": capacity}, "queue overview")
	}
}

// dumpJitterStats logs a one-shot packet stats snapshot via eventlog's
// collated report, the keyboard 'd' command.
func (d *Driver) dumpJitterStats() {
	d.writeStatsHistory()
}

// dumpThreadInfo logs each worker's GetThreadInfo snapshot, the
// keyboard 't' command.
func (d *Driver) dumpThreadInfo() {
	for i := 0; i < d.pool.Len(); i++ {
		info, err := d.pool.GetThreadInfo(i)
		if err != nil {
			continue
		}
		d.logger.Infof(logrus.Fields{"worker": i, "state": info.State}, "thread info")
	}
}
