package transmit

import (
	"bytes"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/pborges/irp/internal/catalogue"
	"github.com/pborges/irp/internal/lirc"
)

const testCatalogue = `
protocols:
  - name: NEC1
    irp: "{38.4k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^192,(16,-4,1,^192)*) [D:0..255,S:0..255=255-D,F:0..255]"
  - name: RC5
    irp: "{36k,msb,889}<1,-1|-1,1>(1,~F:1:6,T:1,D:5,F:6,^128)* [D:0..31,F:0..127,T@:0..1=0]"
  - name: RC5T
    irp: "{36k,msb,889}<1,-1|-1,1>((1,~F:1:6,T:1,D:5,F:6,^128),T=1-T) [D:0..31,F:0..127,T@:0..1=0]"
  - name: Duty
    irp: "{40k,25%,10}(10,-10)"
`

type fakeDevice struct {
	carrier, dutyCycle, mask bool
	sendErr                  error

	calls []string
	sent  [][]uint32
	busy  int32
	clash bool
}

func (d *fakeDevice) enter() {
	if !atomic.CompareAndSwapInt32(&d.busy, 0, 1) {
		d.clash = true
	}
}

func (d *fakeDevice) leave() { atomic.StoreInt32(&d.busy, 0) }

func (d *fakeDevice) CanSetSendCarrier() bool     { return d.carrier }
func (d *fakeDevice) CanSetSendDutyCycle() bool   { return d.dutyCycle }
func (d *fakeDevice) CanSetTransmitterMask() bool { return d.mask }

func (d *fakeDevice) SetSendCarrier(carrier uint32) error {
	d.enter()
	defer d.leave()
	d.calls = append(d.calls, "carrier")
	if carrier == 0 {
		return errors.New("zero carrier")
	}
	return nil
}

func (d *fakeDevice) SetSendDutyCycle(dutyCycle uint32) error {
	d.calls = append(d.calls, "duty")
	return nil
}

func (d *fakeDevice) SetTransmitterMask(mask uint32) error {
	d.calls = append(d.calls, "mask")
	if mask > 3 {
		return &lirc.TransmitterMaskError{Count: 2}
	}
	return nil
}

func (d *fakeDevice) Send(data []uint32) error {
	d.enter()
	defer d.leave()
	d.calls = append(d.calls, "send")
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, data)
	return nil
}

func (d *fakeDevice) Close() error { return nil }

func newTestSender(c *qt.C, cfg Config, dev *fakeDevice) (*Sender, *bytes.Buffer) {
	cat, err := catalogue.Parse([]byte(testCatalogue), catalogue.FormatYAML)
	c.Assert(err, qt.IsNil)
	var buf bytes.Buffer
	return NewSender(cfg, cat, dev, log.New(&buf, "", 0)), &buf
}

func TestSendConfiguresDevice(t *testing.T) {
	c := qt.New(t)
	dev := &fakeDevice{carrier: true, dutyCycle: true, mask: true}
	s, logs := newTestSender(c, Config{TransmitterMask: 1, Repeats: 1}, dev)

	c.Assert(s.Send("nec1", map[string]int64{"D": 0, "F": 1}), qt.IsNil)
	// no duty cycle declared
	c.Assert(dev.calls, qt.DeepEquals, []string{"mask", "carrier", "send"})
	c.Assert(dev.sent, qt.HasLen, 1)
	c.Assert(dev.sent[0], qt.HasLen, 68+4)
	c.Assert(logs.String(), qt.Equals, "sent nec1: carrier 38400Hz, 72 durations\n")

	dev.calls = nil
	c.Assert(s.Send("Duty", nil), qt.IsNil)
	c.Assert(dev.calls, qt.DeepEquals, []string{"mask", "carrier", "duty", "send"})
}

func TestSendSkipsUnsupportedSettings(t *testing.T) {
	c := qt.New(t)
	dev := &fakeDevice{}
	s, _ := newTestSender(c, Config{TransmitterMask: 1}, dev)
	c.Assert(s.Send("Duty", nil), qt.IsNil)
	c.Assert(dev.calls, qt.DeepEquals, []string{"send"})
	c.Assert(dev.sent, qt.DeepEquals, [][]uint32{{100, 100}})
}

func TestSendErrors(t *testing.T) {
	c := qt.New(t)
	dev := &fakeDevice{mask: true}
	s, _ := newTestSender(c, Config{}, dev)

	err := s.Send("RC6", nil)
	c.Assert(err, qt.ErrorIs, catalogue.ErrUnknownProtocol)

	err = s.Send("NEC1", map[string]int64{"D": 0})
	c.Assert(err, qt.ErrorMatches, `NEC1: parameter F: .*`)
	var de *DeviceError
	c.Assert(errors.As(err, &de), qt.IsFalse)
	c.Assert(dev.calls, qt.HasLen, 0)

	dev.sendErr = lirc.ErrIncompleteSend
	err = s.Send("NEC1", map[string]int64{"D": 0, "F": 1})
	c.Assert(err, qt.ErrorAs, &de)
	c.Assert(de.Op, qt.Equals, "send")
	c.Assert(err, qt.ErrorIs, lirc.ErrIncompleteSend)

	s, _ = newTestSender(c, Config{TransmitterMask: 4}, dev)
	err = s.Send("NEC1", map[string]int64{"D": 0, "F": 1})
	c.Assert(err, qt.ErrorMatches, `device set transmitter mask: device only supports 2 transmitters`)
}

func TestSendRemembersParameters(t *testing.T) {
	c := qt.New(t)
	dev := &fakeDevice{}
	s, _ := newTestSender(c, Config{}, dev)

	c.Assert(s.Send("RC5", map[string]int64{"D": 5, "F": 1, "T": 1}), qt.IsNil)
	c.Assert(s.Send("RC5", map[string]int64{"D": 5, "F": 1}), qt.IsNil)
	c.Assert(s.Send("RC5", map[string]int64{"D": 5, "F": 1, "T": 0}), qt.IsNil)
	c.Assert(dev.sent, qt.HasLen, 3)
	c.Assert(dev.sent[1], qt.DeepEquals, dev.sent[0])
	c.Assert(dev.sent[2], qt.Not(qt.DeepEquals), dev.sent[0])
}

func TestSendTogglesMemoryParameter(t *testing.T) {
	c := qt.New(t)
	dev := &fakeDevice{}
	s, _ := newTestSender(c, Config{}, dev)

	params := map[string]int64{"D": 5, "F": 1}
	for i := 0; i < 3; i++ {
		c.Assert(s.Send("RC5T", params), qt.IsNil)
	}
	c.Assert(dev.sent, qt.HasLen, 3)
	c.Assert(dev.sent[1], qt.Not(qt.DeepEquals), dev.sent[0])
	c.Assert(dev.sent[2], qt.DeepEquals, dev.sent[0])
	c.Assert(s.memory["rc5t"], qt.DeepEquals, map[string]int64{"T": 1})

	// other protocols keep their own memory
	c.Assert(s.memory["rc5"], qt.HasLen, 0)
}

func TestSendSerializesDevice(t *testing.T) {
	c := qt.New(t)
	dev := &fakeDevice{carrier: true}
	s, _ := newTestSender(c, Config{}, dev)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(f int64) {
			defer wg.Done()
			c.Check(s.Send("NEC1", map[string]int64{"D": 1, "F": f}), qt.IsNil)
		}(int64(i))
	}
	wg.Wait()
	c.Assert(dev.clash, qt.IsFalse)
	c.Assert(dev.sent, qt.HasLen, 8)
}
