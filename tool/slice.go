package tool

import (
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/timeout"
)

// DefaultResponseTimeout bounds a single exchange with the tool.
const DefaultResponseTimeout = 50 * time.Millisecond

// Link is a byte stream to the tool. Read must not wait for data longer than
// the link's own short read timeout; it returns 0 bytes when nothing arrived.
type Link interface {
	io.Reader
	io.Writer
}

var _ toolpanel.Transaction = &Slice{}

type SliceOpts struct {
	ResponseTimeout time.Duration
	Clock           timeout.Clock
	Verbose         bool
}

type SliceOpt func(*SliceOpts)

func WithResponseTimeout(d time.Duration) SliceOpt {
	return func(o *SliceOpts) {
		o.ResponseTimeout = d
	}
}

func WithClock(clock timeout.Clock) SliceOpt {
	return func(o *SliceOpts) {
		o.Clock = clock
	}
}

// WithVerbose enables hex dumps of every frame.
func WithVerbose(verbose bool) SliceOpt {
	return func(o *SliceOpts) {
		o.Verbose = verbose
	}
}

// Slice is the transaction primitive of the tool bus: one request frame out,
// one response frame back, advanced by Step.
type Slice struct {
	link            Link
	timeout         *timeout.Timeout
	responseTimeout time.Duration
	verbose         bool

	decoder  Decoder
	buf      [MaxFrame]byte
	done     bool
	status   toolpanel.TransportStatus
	response []byte
}

func NewSlice(link Link, opts ...SliceOpt) *Slice {
	config := SliceOpts{
		ResponseTimeout: DefaultResponseTimeout,
		Clock:           timeout.System,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Slice{
		link:            link,
		timeout:         timeout.New(config.Clock),
		responseTimeout: config.ResponseTimeout,
		verbose:         config.Verbose,
		// nothing submitted yet
		done:     true,
		status:   toolpanel.StatusLinkError,
		response: make([]byte, 0, MaxPayload),
	}
}

func (s *Slice) Start(request []byte) {
	s.decoder.Reset()
	s.response = s.response[:0]
	s.done = false
	frame, err := Encode(request)
	if err != nil {
		slog.Error("could not encode tool request", "error", err)
		s.finish(toolpanel.StatusLinkError)
		return
	}
	if s.verbose {
		slog.Debug("sending frame to tool", "frame", hex.EncodeToString(frame))
	}
	if _, err := s.link.Write(frame); err != nil {
		slog.Error("could not write tool request", "error", err)
		s.finish(toolpanel.StatusLinkError)
		return
	}
	s.timeout.Start(s.responseTimeout)
}

func (s *Slice) Step() bool {
	if s.done {
		return true
	}
	n, err := s.link.Read(s.buf[:])
	if err != nil && !errors.Is(err, io.EOF) {
		slog.Error("could not read tool response", "error", err)
		s.finish(toolpanel.StatusLinkError)
		return true
	}
	for _, b := range s.buf[:n] {
		complete, err := s.decoder.Feed(b)
		if err != nil {
			slog.Debug("dropping broken tool frame", "error", err)
			continue
		}
		if complete {
			s.response = append(s.response[:0], s.decoder.Payload()...)
			if s.verbose {
				slog.Debug("read frame from tool", "payload", hex.EncodeToString(s.response))
			}
			s.finish(toolpanel.StatusOK)
			return true
		}
	}
	if s.timeout.HasElapsed() {
		slog.Debug("tool response timeout", "timeout", s.responseTimeout)
		s.finish(toolpanel.StatusTimedOut)
		return true
	}
	return false
}

func (s *Slice) Status() toolpanel.TransportStatus {
	return s.status
}

func (s *Slice) Response() []byte {
	return s.response
}

func (s *Slice) finish(status toolpanel.TransportStatus) {
	s.timeout.Abort()
	s.status = status
	s.done = true
}
