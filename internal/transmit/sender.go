package transmit

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/pborges/irp/internal/catalogue"
	"github.com/pborges/irp/internal/irp"
	"github.com/pborges/irp/internal/lirc"
)

// Device is the part of *lirc.Device a Sender uses.
type Device interface {
	CanSetSendCarrier() bool
	CanSetSendDutyCycle() bool
	CanSetTransmitterMask() bool
	SetSendCarrier(carrier uint32) error
	SetSendDutyCycle(dutyCycle uint32) error
	SetTransmitterMask(mask uint32) error
	Send(data []uint32) error
	Close() error
}

// DeviceError is a failure reported by the device rather than by
// rendering the signal.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return "device " + e.Op + ": " + e.Err.Error() }

func (e *DeviceError) Unwrap() error { return e.Err }

// Sender serializes sends to one device. Parameters declared with @
// keep the value they held at the end of the last send of the same
// protocol, including stream assignments such as a toggle, and it is
// used when the caller leaves them out.
type Sender struct {
	cfg    Config
	cat    *catalogue.Catalogue
	logger *log.Logger

	mu     sync.Mutex
	dev    Device
	memory map[string]map[string]int64
}

// NewSender builds a Sender around an open device. A nil logger discards
// output.
func NewSender(cfg Config, cat *catalogue.Catalogue, dev Device, logger *log.Logger) *Sender {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sender{
		cfg:    cfg,
		cat:    cat,
		dev:    dev,
		logger: logger,
		memory: make(map[string]map[string]int64),
	}
}

// Open loads the configured catalogue and opens the device.
func Open(cfg Config, logger *log.Logger) (*Sender, error) {
	cat, err := catalogue.Load(cfg.Catalogue)
	if err != nil {
		return nil, err
	}
	dev, err := lirc.Open(cfg.Device)
	if err != nil {
		return nil, err
	}
	if !dev.CanSend() {
		dev.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Device, lirc.ErrSendUnsupported)
	}
	s := NewSender(cfg, cat, dev, logger)
	s.logger.Printf("opened %s with %d protocols", cfg.Device, cat.Len())
	return s, nil
}

func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Close()
}

// Send renders the named protocol with params and transmits it.
func (s *Sender) Send(name string, params map[string]int64) error {
	p, err := s.cat.Protocol(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	vars := irp.VartableFrom(params)
	for k, v := range s.memory[key] {
		if !vars.Has(k) {
			vars.Set(k, v)
		}
	}
	msg, final, err := irp.RenderBindings(p, vars, s.cfg.Repeats)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if s.cfg.TransmitterMask != 0 && s.dev.CanSetTransmitterMask() {
		if err := s.dev.SetTransmitterMask(s.cfg.TransmitterMask); err != nil {
			return &DeviceError{Op: "set transmitter mask", Err: err}
		}
	}
	if s.dev.CanSetSendCarrier() {
		if err := s.dev.SetSendCarrier(uint32(msg.Carrier)); err != nil {
			return &DeviceError{Op: "set carrier", Err: err}
		}
	}
	if msg.DutyCycle != 0 && s.dev.CanSetSendDutyCycle() {
		if err := s.dev.SetSendDutyCycle(uint32(msg.DutyCycle)); err != nil {
			return &DeviceError{Op: "set duty cycle", Err: err}
		}
	}
	if err := s.dev.Send(msg.Raw); err != nil {
		return &DeviceError{Op: "send", Err: err}
	}
	s.logger.Printf("sent %s: carrier %dHz, %d durations", name, msg.Carrier, len(msg.Raw))

	return s.remember(key, p.Parameters, final)
}

// remember stores the values memory parameters held when the send
// finished.
func (s *Sender) remember(key string, params []irp.ParameterSpec, final *irp.Vartable) error {
	for _, ps := range params {
		if !ps.Memory || !final.Has(ps.Name) {
			continue
		}
		v, err := final.Get(ps.Name)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", ps.Name, err)
		}
		if s.memory[key] == nil {
			s.memory[key] = make(map[string]int64)
		}
		s.memory[key][ps.Name] = v
	}
	return nil
}
