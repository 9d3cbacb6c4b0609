package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/danmuck/sctl/internal/observability"
	"github.com/danmuck/sctl/internal/protocol"
	"github.com/danmuck/sctl/internal/protocol/frame"
	"github.com/danmuck/sctl/internal/protocol/tlv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidOnMessage = errors.New("session: on message callback required")
	ErrConnectionClosed = errors.New("session: connection closed")
	ErrAlreadyRunning   = errors.New("session: already running")
)

type outFrame struct {
	buf []byte
	n   int
}

// Conn runs the control protocol over one transport.
type Conn struct {
	rw     io.ReadWriter
	opts   options
	logger zerolog.Logger

	fr *frame.Reader
	pr *protocol.Reader

	sendMu sync.Mutex
	pw     *protocol.Writer
	scan   *protocol.Reader
	free   chan []byte
	sendq  chan outFrame

	running atomic.Bool
	closed  atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewConn allocates every buffer the connection will use up front.
func NewConn(rw io.ReadWriter, opt ...Option) (*Conn, error) {
	opts := options{cfg: DefaultConfig()}
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	cfg := opts.cfg
	c := &Conn{
		rw:     rw,
		opts:   opts,
		logger: *opts.logger,
		fr:     frame.NewReader(make([]byte, cfg.ReadBuffer)),
		pr:     protocol.NewReader(make([]byte, cfg.RecordBuffer), protocol.WithPolicy(cfg.Policy)),
		pw:     protocol.NewWriter(make([]byte, cfg.WriteBuffer)),
		scan:   protocol.NewReader(nil),
		free:   make(chan []byte, cfg.SendQueue),
		sendq:  make(chan outFrame, cfg.SendQueue),
	}
	wire := frame.MaxEncodedLen(cfg.WriteBuffer) + 1
	for i := 0; i < cfg.SendQueue; i++ {
		c.free <- make([]byte, wire)
	}
	return c, nil
}

func checkOptions(opts *options) error {
	if err := opts.cfg.Validate(); err != nil {
		return err
	}
	if opts.onMessage == nil {
		return ErrInvalidOnMessage
	}
	if opts.onError == nil {
		opts.onError = defaultOnError
	}
	if opts.logger == nil {
		l := zerolog.Nop()
		opts.logger = &l
	}
	return nil
}

// defaultOnError skips anything confined to one frame or record.
func defaultOnError(err error) ErrorAction {
	switch protocol.LayerOf(err) {
	case protocol.LayerFrame, protocol.LayerTLV, protocol.LayerProtocol:
		return Continue
	default:
		return Disconnect
	}
}

// Run starts the read and write loops and blocks until one fails, the peer
// closes the transport or ctx is canceled. A clean end of input returns nil.
// When the transport is an io.Closer it is closed on the way out, which also
// unblocks a pending read.
func (c *Conn) Run(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	cfg := c.opts.cfg
	c.logger.Info().
		Int("read_buffer", cfg.ReadBuffer).
		Int("write_buffer", cfg.WriteBuffer).
		Int("send_queue", cfg.SendQueue).
		Stringer("policy", cfg.Policy).
		Msg("session started")

	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})
	group.Go(func() error {
		return c.writeLoop(child)
	})
	group.Go(func() error {
		<-child.Done()
		c.closeTransport()
		return nil
	})

	err := group.Wait()
	c.closed.Store(true)

	if errors.Is(err, io.EOF) {
		c.logger.Info().Msg("session closed by peer")
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error().Err(err).Msg("session closed with error")
	} else {
		c.logger.Info().Msg("session closed")
	}
	return err
}

// Close stops Run. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		return nil
	}
	return c.closeTransport()
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

func (c *Conn) closeTransport() error {
	if cl, ok := c.rw.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Send builds one frame with build and queues it for the write loop. It
// blocks while every send buffer is in flight. A build error discards the
// partial frame.
func (c *Conn) Send(ctx context.Context, build func(*protocol.Writer) error) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	var buf []byte
	select {
	case buf = <-c.free:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.sendMu.Lock()
	c.pw.Reset()
	err := build(c.pw)
	if err == nil {
		c.countOut(c.pw.Bytes())
	}
	var n int
	if err == nil {
		n, err = c.pw.Encode(buf)
	}
	c.pw.Reset()
	c.sendMu.Unlock()

	if err != nil {
		c.free <- buf
		return err
	}
	c.sendq <- outFrame{buf: buf, n: n}
	return nil
}

// SendMessage queues a single message as its own frame.
func (c *Conn) SendMessage(ctx context.Context, m protocol.Message) error {
	return c.Send(ctx, func(w *protocol.Writer) error {
		return w.AppendMessage(m)
	})
}

func (c *Conn) countOut(records []byte) {
	if c.opts.metrics == nil {
		return
	}
	c.scan.Load(records)
	for {
		m, ok, err := c.scan.NextView()
		if !ok || err != nil {
			return
		}
		c.opts.metrics.RecordMessage(observability.DirectionOut, tagLabel(m.Tag))
	}
}

// tagLabel names a tag for metrics. Unknown tags share one label so a peer
// cannot grow the series count.
func tagLabel(t protocol.Tag) string {
	if !t.Known() {
		return "other"
	}
	return t.String()
}

func (c *Conn) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.fr.Remaining() == 0 {
			c.fr.Reclaim()
		}
		n, rerr := c.fr.ReadFrom(c.rw)
		c.opts.metrics.RecordBytes(observability.DirectionIn, int(n))
		if err := c.drain(); err != nil {
			return err
		}
		c.fr.Compact()
		if rerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(rerr, io.EOF) {
				return io.EOF
			}
			c.logger.Debug().Err(rerr).Msg("read error")
			if c.opts.onError(rerr) == Disconnect {
				return rerr
			}
		}
	}
}

// drain hands every complete buffered frame to the handler.
func (c *Conn) drain() error {
	for {
		ok, err := c.pr.ReadFrame(c.fr)
		if err != nil {
			if err := c.reject(err); err != nil {
				return err
			}
			continue
		}
		if !ok {
			return nil
		}
		c.opts.metrics.RecordFrame(observability.DirectionIn)
		if err := c.dispatch(); err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch() error {
	for {
		m, ok, err := c.pr.NextView()
		if err != nil {
			if err := c.reject(err); err != nil {
				return err
			}
			continue
		}
		if !ok {
			return nil
		}
		c.opts.metrics.RecordMessage(observability.DirectionIn, tagLabel(m.Tag))
		c.logger.Trace().Stringer("msg", m).Msg("message")
		if err := c.opts.onMessage(m); err != nil {
			return err
		}
	}
}

func (c *Conn) reject(err error) error {
	reason := ErrorReason(err)
	c.opts.metrics.RecordFrameError(reason)
	c.logger.Debug().Err(err).Str("reason", reason).Msg("dropped input")
	if c.opts.onError(err) == Disconnect {
		return err
	}
	return nil
}

func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-c.sendq:
			err := c.write(out)
			c.free <- out.buf
			if err != nil {
				return err
			}
		}
	}
}

func (c *Conn) write(out outFrame) error {
	n, err := c.rw.Write(out.buf[:out.n])
	c.opts.metrics.RecordBytes(observability.DirectionOut, n)
	if err != nil {
		c.opts.metrics.RecordFrameError("write")
		c.logger.Debug().Err(err).Msg("write error")
		if c.opts.onError(err) == Disconnect {
			return err
		}
		return nil
	}
	c.opts.metrics.RecordFrame(observability.DirectionOut)
	return nil
}

// ErrorReason maps an error to a short metric label.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, frame.ErrUnexpectedNull):
		return "unexpected_null"
	case errors.Is(err, frame.ErrSourceTooShort):
		return "source_too_short"
	case errors.Is(err, frame.ErrDestTooShort):
		return "dest_too_short"
	case errors.Is(err, frame.ErrMissingTerminator):
		return "missing_terminator"
	case errors.Is(err, frame.ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(err, protocol.ErrTruncated):
		return "truncated"
	case errors.Is(err, protocol.ErrUnknownTag):
		return "unknown_tag"
	case errors.Is(err, protocol.ErrInvalidLength):
		return "invalid_length"
	case errors.Is(err, tlv.ErrOutOfRange):
		return "out_of_range"
	default:
		return "other"
	}
}
