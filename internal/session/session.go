package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pscheid92/pushcast/internal/errors"
	"github.com/pscheid92/pushcast/internal/metrics"
	"github.com/pscheid92/pushcast/internal/platform/correlation"
)

const DefaultReadBufferSize = 1024

// Teardown reasons, also used as metric labels.
const (
	ReasonPeerClosed  = "peer_closed"
	ReasonReadError   = "read_error"
	ReasonReadTimeout = "read_timeout"
	ReasonWriteError  = "write_error"
	ReasonShutdown    = "shutdown"
)

// Options tunes a Session. The zero value is usable.
type Options struct {
	// ReadBufferSize is the size of the fixed inbound buffer (DefaultReadBufferSize if zero).
	ReadBufferSize int
	// WriteTimeout bounds every connection write. Zero disables the deadline.
	WriteTimeout time.Duration
	// ReadTimeout closes sessions whose peer stays silent for this long. Zero disables it.
	ReadTimeout time.Duration
	// Handler is invoked for every chunk read. Nil discards inbound bytes.
	Handler Handler
	// OnClose is invoked once after teardown with the reason and the triggering error (nil on shutdown).
	OnClose func(s *Session, reason string, err error)
}

// Session is the server-side state of one accepted connection.
type Session struct {
	id       uuid.UUID
	conn     net.Conn
	registry *Registry
	opts     Options
	ctx      context.Context
	openedAt time.Time

	buf    []byte
	writes *writeQueue

	alive     atomic.Bool
	started   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	writerWG  sync.WaitGroup

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// New creates a Session for conn and registers it in registry. The writer goroutine
// starts immediately so broadcasts queued before Start are delivered; call Start
// (or Run) to begin reading.
func New(conn net.Conn, registry *Registry, opts Options) *Session {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}

	id := uuid.New()
	s := &Session{
		id:       id,
		conn:     conn,
		registry: registry,
		opts:     opts,
		ctx:      correlation.WithSessionID(context.Background(), id),
		openedAt: time.Now(),
		buf:      make([]byte, opts.ReadBufferSize),
		writes:   newWriteQueue(),
		done:     make(chan struct{}),
	}
	s.alive.Store(true)

	s.writerWG.Add(1)
	go s.writeLoop()

	registry.Add(s)
	metrics.SessionsOpenedTotal.Inc()
	slog.InfoContext(s.ctx, "Session opened", "remote", conn.RemoteAddr().String())

	return s
}

// ID returns the session's random identifier used for log correlation.
func (s *Session) ID() uuid.UUID { return s.id }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Alive reports whether the session has not yet been torn down.
func (s *Session) Alive() bool { return s.alive.Load() }

// Done is closed when teardown begins.
func (s *Session) Done() <-chan struct{} { return s.done }

// BytesRead returns the number of bytes received from the peer.
func (s *Session) BytesRead() uint64 { return s.bytesRead.Load() }

// BytesWritten returns the number of bytes successfully written to the peer.
func (s *Session) BytesWritten() uint64 { return s.bytesWritten.Load() }

// Start begins the read loop in its own goroutine. Only the first call has an effect.
func (s *Session) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

// Run executes the read loop in the calling goroutine and returns after the session
// has been torn down and its writer has exited. Returns immediately if already started.
func (s *Session) Run() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.run()
}

func (s *Session) run() {
	err := s.readLoop()
	s.teardown(s.classifyRead(err), err)
	s.writerWG.Wait()
}

// Send schedules data to be written to the peer and returns without waiting for
// the write. data must not be modified afterwards. Returns false if the session
// is closed; the data is then discarded.
func (s *Session) Send(data []byte) bool {
	depth, ok := s.writes.push(data)
	if ok {
		metrics.SessionQueueDepth.Observe(float64(depth))
	}
	return ok
}

// Pending returns the number of queued writes not yet handed to the connection.
func (s *Session) Pending() int {
	return s.writes.len()
}

// Close tears the session down with the shutdown reason. Safe to call concurrently
// and more than once.
func (s *Session) Close() {
	s.teardown(ReasonShutdown, nil)
}

// Wait blocks until the writer goroutine has exited after teardown.
func (s *Session) Wait() {
	<-s.done
	s.writerWG.Wait()
}

func (s *Session) readLoop() error {
	for {
		if s.opts.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}

		n, err := s.conn.Read(s.buf)
		if n > 0 {
			s.bytesRead.Add(uint64(n))
			metrics.SessionBytesTotal.WithLabelValues("read").Add(float64(n))
			if s.opts.Handler != nil {
				s.opts.Handler(s, s.buf[:n])
			}
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) writeLoop() {
	defer s.writerWG.Done()

	for {
		select {
		case <-s.writes.wake:
		case <-s.done:
			return
		}

		for {
			data, ok := s.writes.pop()
			if !ok {
				break
			}
			if err := s.write(data); err != nil {
				s.teardown(ReasonWriteError, err)
				return
			}
		}
	}
}

func (s *Session) write(data []byte) error {
	if s.opts.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}

	start := time.Now()
	n, err := s.conn.Write(data)
	metrics.SessionWriteDuration.Observe(time.Since(start).Seconds())

	if n > 0 {
		s.bytesWritten.Add(uint64(n))
		metrics.SessionBytesTotal.WithLabelValues("write").Add(float64(n))
	}
	return err
}

func (s *Session) classifyRead(err error) string {
	var netErr net.Error
	switch {
	case apperrors.IsPeerClosed(err):
		return ReasonPeerClosed
	case errors.Is(err, os.ErrDeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ReasonReadTimeout
	default:
		return ReasonReadError
	}
}

// teardown removes the session from the registry, closes the connection and
// stops the writer. Only the first caller's reason is recorded.
func (s *Session) teardown(reason string, cause error) {
	s.closeOnce.Do(func() {
		s.registry.Remove(s)
		s.alive.Store(false)
		dropped := s.writes.close()
		close(s.done)
		_ = s.conn.Close()

		metrics.SessionsClosedTotal.WithLabelValues(reason).Inc()
		metrics.SessionDuration.Observe(time.Since(s.openedAt).Seconds())

		attrs := []any{
			"reason", reason,
			"bytes_read", s.bytesRead.Load(),
			"bytes_written", s.bytesWritten.Load(),
			"dropped_writes", dropped,
		}

		var err error
		if cause != nil && !apperrors.IsClosedConn(cause) {
			op := "read"
			if reason == ReasonWriteError {
				op = "write"
			}
			err = apperrors.SessionIOError(op, cause)
			attrs = append(attrs, "error", err)
		}
		slog.InfoContext(s.ctx, "Session closed", attrs...)

		if s.opts.OnClose != nil {
			s.opts.OnClose(s, reason, err)
		}
	})
}
