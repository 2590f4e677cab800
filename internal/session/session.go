package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/fixfire/internal/fix"
)

// State is the session lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateLoggedOn
	StateLoggingOut
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateLoggedOn:
		return "logged-on"
	case StateLoggingOut:
		return "logging-out"
	default:
		return "unknown"
	}
}

// Options configures a session.
type Options struct {
	Address          string // host:port for tcp, full URL for websocket
	Transport        string // TransportTCP (default) or TransportWebSocket
	BeginString      string
	SenderCompID     string
	TargetCompID     string
	Username         string
	Password         string
	HeartBtInt       time.Duration
	DialTimeout      time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration // websocket only

	// Dialer overrides the transport-selected dialer, mainly for tests.
	Dialer Dialer

	Logger zerolog.Logger
}

func (o *Options) normalize() {
	if o.Transport == "" {
		o.Transport = TransportTCP
	}
	if o.BeginString == "" {
		o.BeginString = "FIX.4.4"
	}
	if o.HeartBtInt <= 0 {
		o.HeartBtInt = 30 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.Dialer == nil {
		switch o.Transport {
		case TransportWebSocket:
			o.Dialer = &wsDialer{handshakeTimeout: o.HandshakeTimeout}
		default:
			o.Dialer = &tcpDialer{timeout: o.DialTimeout}
		}
	}
}

// SendResult describes a message that reached the wire.
type SendResult struct {
	SeqNum int
	SentAt time.Time
	Wire   []byte
}

// Session is one logical FIX connection: a single conn, a monotonically
// increasing outbound sequence counter, and serialized writes. Many
// goroutines may Send concurrently; exactly one goroutine (the response
// demultiplexer) may Read.
type Session struct {
	opts Options
	log  zerolog.Logger

	state atomic.Int32

	// writeMu makes sequence stamping and the write one critical section,
	// so wire order matches sequence order.
	writeMu sync.Mutex
	conn    net.Conn
	seq     int
}

// New returns a disconnected session.
func New(opts Options) *Session {
	opts.normalize()
	return &Session{
		opts: opts,
		log:  opts.Logger.With().Str("component", "session").Logger(),
		seq:  1,
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// NextSeq reports the next unconsumed outbound sequence number.
func (s *Session) NextSeq() int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.seq
}

// Connect dials the counterparty and sends the logon frame. The session is
// LoggedOn once the logon write succeeds; the logon acknowledgment is not
// awaited, so a rejecting counterparty surfaces as timeouts on the first
// injected messages.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return &ConnectError{Addr: s.opts.Address, Err: fmt.Errorf("connect from state %s", s.State())}
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	defer cancel()

	conn, err := s.opts.Dialer.Dial(dialCtx, s.opts.Address)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		s.log.Error().Err(err).Str("addr", s.opts.Address).Msg("dial failed")
		return &ConnectError{Addr: s.opts.Address, Err: err}
	}

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()

	if _, err := s.send(ctx, s.logonMessage()); err != nil {
		s.writeMu.Lock()
		s.conn = nil
		s.writeMu.Unlock()
		conn.Close()
		s.state.Store(int32(StateDisconnected))
		return &ConnectError{Addr: s.opts.Address, Err: err}
	}

	s.state.Store(int32(StateLoggedOn))
	s.log.Info().
		Str("addr", s.opts.Address).
		Str("transport", s.opts.Transport).
		Str("sender", s.opts.SenderCompID).
		Str("target", s.opts.TargetCompID).
		Msg("logged on")
	return nil
}

// Send stamps the session header fields into msg, consumes one sequence
// number, and writes the frame. The sequence number is consumed even when
// the encode or write fails.
func (s *Session) Send(ctx context.Context, msg *fix.Message) (SendResult, error) {
	if s.State() != StateLoggedOn {
		return SendResult{}, &SendError{Err: fmt.Errorf("session is %s", s.State())}
	}
	return s.send(ctx, msg)
}

func (s *Session) send(ctx context.Context, msg *fix.Message) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, &SendError{Err: err}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.conn == nil {
		return SendResult{}, &SendError{Err: errors.New("not connected")}
	}

	seq := s.seq
	s.seq++

	now := time.Now().UTC()
	msg.Set(fix.TagBeginString, s.opts.BeginString)
	msg.Set(fix.TagSenderCompID, s.opts.SenderCompID)
	msg.Set(fix.TagTargetCompID, s.opts.TargetCompID)
	msg.Set(fix.TagMsgSeqNum, strconv.Itoa(seq))
	msg.Set(fix.TagSendingTime, now.Format(fix.SendingTimeLayout))

	frame, err := fix.Encode(msg)
	if err != nil {
		return SendResult{SeqNum: seq}, err
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return SendResult{SeqNum: seq}, &SendError{Err: err}
	}
	if _, err := s.conn.Write(frame); err != nil {
		return SendResult{SeqNum: seq}, &SendError{Err: err}
	}

	return SendResult{SeqNum: seq, SentAt: now, Wire: frame}, nil
}

// Read hands raw inbound bytes to the single reader goroutine.
func (s *Session) Read(p []byte) (int, error) {
	s.writeMu.Lock()
	conn := s.conn
	s.writeMu.Unlock()
	if conn == nil {
		return 0, errors.New("session: not connected")
	}
	return conn.Read(p)
}

// Disconnect sends a best-effort logout frame and closes the connection.
// The session always ends Disconnected; calling it twice is harmless.
func (s *Session) Disconnect(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateLoggedOn), int32(StateLoggingOut)) {
		if s.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected)) {
			return nil
		}
		return nil
	}

	if _, err := s.send(ctx, fix.NewMessage(fix.MsgTypeLogout)); err != nil {
		s.log.Debug().Err(err).Msg("logout write failed")
	}

	s.writeMu.Lock()
	conn := s.conn
	s.conn = nil
	s.writeMu.Unlock()

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}
	s.state.Store(int32(StateDisconnected))
	s.log.Info().Msg("disconnected")
	return closeErr
}

func (s *Session) logonMessage() *fix.Message {
	m := fix.NewMessage(fix.MsgTypeLogon)
	m.Set(fix.TagEncryptMethod, "0")
	m.Set(fix.TagHeartBtInt, strconv.Itoa(int(s.opts.HeartBtInt/time.Second)))
	if s.opts.Username != "" {
		m.Set(fix.TagUsername, s.opts.Username)
	}
	if s.opts.Password != "" {
		m.Set(fix.TagPassword, s.opts.Password)
	}
	return m
}
