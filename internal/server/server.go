// Package server implements the TCP banking server: the acceptor, the
// per-connection sessions and the command handlers that compose the
// store and the approval broker.
package server

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/securebank/bankd/internal/approval"
	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/codec"
	"github.com/securebank/bankd/internal/store"
)

// acceptPoll bounds how long Stop waits for the accept loop to notice
// shutdown.
const acceptPoll = 100 * time.Millisecond

const operatorPassword = "superpass123"

// Options configures a Server.
type Options struct {
	Host        string
	Port        int
	Store       *store.Store
	Broker      *approval.Broker
	WaitTimeout time.Duration
}

// Server owns the listener and the session registry.
type Server struct {
	host        string
	port        int
	store       *store.Store
	broker      *approval.Broker
	waitTimeout time.Duration

	mu       sync.Mutex
	sessions map[net.Conn]*Session

	listener *net.TCPListener
	cancel   context.CancelFunc
	group    *errgroup.Group
	running  atomic.Bool
}

// New creates a server and ensures the built-in operator exists.
func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Broker == nil {
		return nil, errors.New("server: store and broker are required")
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = approval.DefaultWaitTimeout
	}
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}

	s := &Server{
		host:        opts.Host,
		port:        opts.Port,
		store:       opts.Store,
		broker:      opts.Broker,
		waitTimeout: opts.WaitTimeout,
		sessions:    make(map[net.Conn]*Session),
	}
	if err := s.ensureOperator(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureOperator creates the SUPER001 record on first start.
func (s *Server) ensureOperator() error {
	if _, ok := s.store.GetClient(bank.OperatorID); ok {
		return nil
	}
	operator := bank.Client{
		AccountID:    bank.OperatorID,
		FullName:     "Security Officer",
		BirthDate:    "1980-01-01",
		PassportData: bank.OperatorID,
		PasswordHash: codec.HashPassword(operatorPassword),
		Status:       bank.Verified,
		Accounts: []bank.Account{
			{Number: "SUPER_ACC", Type: bank.Checking},
		},
	}
	if err := s.store.AddClient(operator); err != nil {
		return err
	}
	log.Printf("server: super user created: %s", bank.OperatorID)
	return nil
}

// Start binds the listener and launches the accept loop.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.listener = listener.(*net.TCPListener)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	group, ctx := errgroup.WithContext(ctx)
	s.group = group

	group.Go(func() error {
		return s.acceptLoop(ctx)
	})

	log.Printf("server: listening on %s", s.listener.Addr())
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down: stops accepting, drops every session,
// waits for the workers, then flushes the store and the spool.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.cancel()
	s.listener.Close()

	s.mu.Lock()
	for conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()

	err := s.group.Wait()

	log.Println("server: saving state")
	if saveErr := s.store.Save(); saveErr != nil && err == nil {
		err = saveErr
	}
	s.broker.Flush()
	log.Println("server: state saved")
	return err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.listener.SetDeadline(time.Now().Add(acceptPoll))
		conn, err := s.listener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("server: accept: %v", err)
			continue
		}

		sess := &Session{conn: conn}
		s.mu.Lock()
		s.sessions[conn] = sess
		s.mu.Unlock()

		s.group.Go(func() error {
			s.handleConn(sess)
			return nil
		})
		log.Printf("server: new client connected from %s", conn.RemoteAddr())
	}
}

func (s *Server) handleConn(sess *Session) {
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.conn)
		s.mu.Unlock()
		sess.conn.Close()
		log.Println("server: client disconnected")
	}()

	if err := s.send(sess, welcomeBanner); err != nil {
		return
	}

	scanner := bufio.NewScanner(sess.conn)
	for s.running.Load() && scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		response, closeConn := s.processCommand(sess, line)
		if response != "" {
			if err := s.send(sess, response); err != nil {
				return
			}
		}
		if closeConn {
			return
		}
	}
}

// send writes a response as-is; responses are free-form text with no
// framing beyond TCP.
func (s *Server) send(sess *Session, response string) error {
	_, err := sess.conn.Write([]byte(response))
	return err
}
