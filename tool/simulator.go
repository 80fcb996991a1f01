package tool

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/mklimuk/toolpanel"
)

// Simulator is an in-memory extruder controller. It implements Link so the
// whole stack can run without hardware.
type Simulator struct {
	mx       sync.Mutex
	decoder  Decoder
	out      []byte
	pending  []byte
	wait     int
	delay    int
	silent   bool
	requests [][]byte

	Version          uint16
	Temp             uint16
	Setpoint         uint16
	PlatformTemp     uint16
	PlatformSetpoint uint16
	Motor1PWM        byte
}

func NewSimulator() *Simulator {
	return &Simulator{
		Version:      302,
		Temp:         24,
		PlatformTemp: 22,
	}
}

// SetResponseDelay holds every response back for the given number of reads.
func (s *Simulator) SetResponseDelay(reads int) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.delay = reads
}

// SetSilent makes the simulator swallow requests without answering.
func (s *Simulator) SetSilent(silent bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.silent = silent
}

// Requests returns payloads of all requests received so far.
func (s *Simulator) Requests() [][]byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([][]byte(nil), s.requests...)
}

func (s *Simulator) Write(p []byte) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	for _, b := range p {
		complete, err := s.decoder.Feed(b)
		if err != nil {
			slog.Debug("simulator dropped request", "error", err)
			continue
		}
		if !complete {
			continue
		}
		req := append([]byte(nil), s.decoder.Payload()...)
		s.requests = append(s.requests, req)
		if s.silent {
			continue
		}
		frame, err := Encode(s.handle(req))
		if err != nil {
			return 0, err
		}
		s.pending = append(s.pending, frame...)
		s.wait = s.delay
	}
	return len(p), nil
}

func (s *Simulator) Read(p []byte) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(s.pending) > 0 {
		if s.wait > 0 {
			s.wait--
			return 0, nil
		}
		s.out = append(s.out, s.pending...)
		s.pending = s.pending[:0]
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *Simulator) handle(req []byte) []byte {
	if len(req) < 2 {
		return []byte{toolpanel.RCGenericError}
	}
	args := req[2:]
	switch req[1] {
	case CmdVersion:
		return withUint16(s.Version)
	case CmdInit:
		return []byte{toolpanel.RCOK}
	case CmdGetTemp:
		return withUint16(s.Temp)
	case CmdGetPlatformTemp:
		return withUint16(s.PlatformTemp)
	case CmdGetSetpoint:
		return withUint16(s.Setpoint)
	case CmdGetPlatformSetpoint:
		return withUint16(s.PlatformSetpoint)
	case CmdGetMotor1PWM:
		return []byte{toolpanel.RCOK, s.Motor1PWM}
	case CmdSetTemp:
		if len(args) < 2 {
			return []byte{toolpanel.RCGenericError}
		}
		s.Setpoint = binary.LittleEndian.Uint16(args)
		return []byte{toolpanel.RCOK}
	case CmdSetPlatformTemp:
		if len(args) < 2 {
			return []byte{toolpanel.RCGenericError}
		}
		s.PlatformSetpoint = binary.LittleEndian.Uint16(args)
		return []byte{toolpanel.RCOK}
	default:
		return []byte{toolpanel.RCCmdUnsupported}
	}
}

func withUint16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16([]byte{toolpanel.RCOK}, v)
}
