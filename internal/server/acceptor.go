package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "github.com/pscheid92/pushcast/internal/errors"
	"github.com/pscheid92/pushcast/internal/metrics"
	"github.com/pscheid92/pushcast/internal/platform/retry"
	"github.com/pscheid92/pushcast/internal/session"
)

// Config configures an Acceptor.
type Config struct {
	// Host to bind; empty binds all interfaces.
	Host string
	// Port to bind; zero picks an ephemeral port.
	Port int

	Session session.Options
	Limits  Limits

	// TCPUserTimeout bounds unacknowledged writes on accepted sockets (Linux only). Zero leaves the kernel default.
	TCPUserTimeout time.Duration
}

// Acceptor owns the listening socket and the accept loop.
type Acceptor struct {
	cfg      Config
	registry *session.Registry
	limits   *ConnectionLimits
	backoff  *retry.Backoff

	listener net.Listener
	sessions sync.WaitGroup
}

func NewAcceptor(registry *session.Registry, cfg Config, clock clockwork.Clock) *Acceptor {
	return &Acceptor{
		cfg:      cfg,
		registry: registry,
		limits:   NewConnectionLimits(cfg.Limits, clock),
		backoff:  retry.NewBackoff(retry.AcceptPolicy, clock),
	}
}

// Listen binds the listening socket. Any failure is a fatal BindError.
func (a *Acceptor) Listen(ctx context.Context) error {
	lc := net.ListenConfig{Control: socketControl(a.cfg.TCPUserTimeout)}
	addr := net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return apperrors.BindError(a.cfg.Port, err).WithContext("addr", addr)
	}
	a.listener = ln

	slog.Info("Listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (a *Acceptor) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then closes the listener and
// every live session and waits for their goroutines. Accept errors never end the
// loop.
func (a *Acceptor) Serve(ctx context.Context) error {
	if a.listener == nil {
		return fmt.Errorf("serve called before listen")
	}

	stop := context.AfterFunc(ctx, func() { _ = a.listener.Close() })
	defer stop()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if apperrors.IsClosedConn(err) {
				slog.Warn("Listener closed outside shutdown")
				break
			}

			metrics.AcceptErrorsTotal.Inc()
			slog.Warn("Accept failed, retrying", "error", apperrors.AcceptError(err), "consecutive_failures", a.backoff.Failures()+1)
			if err := a.backoff.Wait(ctx); err != nil {
				break
			}
			continue
		}

		a.backoff.Reset()
		a.handle(conn)
	}

	_ = a.listener.Close()
	closed := a.registry.CloseAll()
	a.sessions.Wait()
	slog.Info("Acceptor stopped", "closed_sessions", closed)

	return nil
}

func (a *Acceptor) handle(conn net.Conn) {
	ip := remoteIP(conn)
	if ok, reason := a.limits.Acquire(ip); !ok {
		metrics.ConnectionsRejectedTotal.WithLabelValues(string(reason)).Inc()
		slog.Warn("Connection rejected", "remote", conn.RemoteAddr().String(), "reason", reason)
		_ = conn.Close()
		return
	}

	opts := a.cfg.Session
	onClose := opts.OnClose
	opts.OnClose = func(s *session.Session, reason string, err error) {
		a.limits.Release(ip)
		if onClose != nil {
			onClose(s, reason, err)
		}
	}

	s := session.New(conn, a.registry, opts)

	a.sessions.Add(1)
	go func() {
		defer a.sessions.Done()
		s.Run()
	}()
}

func remoteIP(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
