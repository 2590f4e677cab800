package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/fixfire/internal/fix"
)

type serverMode string

const (
	modeTCP       serverMode = "tcp"
	modeWebSocket serverMode = "websocket"
)

func main() {
	mode := flag.String("mode", "tcp", "Server mode: tcp, websocket")
	port := flag.Int("port", 0, "Listening port")
	latency := flag.Duration("latency", 0, "Base delay before each execution report")
	jitter := flag.Duration("jitter", 0, "Extra random delay, uniform in [0, jitter)")
	rejectRate := flag.Float64("reject-rate", 0, "Fraction of orders to reject, 0..1")
	corrTag := flag.Int("correlation-tag", fix.TagClOrdID, "Tag echoed back on execution reports")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}
	if *rejectRate < 0 || *rejectRate > 1 {
		log.Fatalf("reject-rate must be within [0, 1]")
	}

	a := &acceptor{
		latency:    *latency,
		jitter:     *jitter,
		rejectRate: *rejectRate,
		corrTag:    *corrTag,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	switch serverMode(*mode) {
	case modeTCP:
		log.Fatal(a.serveTCP(*port))
	case modeWebSocket:
		log.Fatal(a.serveWebSocket(*port))
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

// acceptor is a minimal FIX counterparty for local runs: it acks logons,
// answers test requests, and fills or rejects anything carrying the
// correlation tag.
type acceptor struct {
	latency    time.Duration
	jitter     time.Duration
	rejectRate float64
	corrTag    int

	mu  sync.Mutex
	rnd *rand.Rand
}

func (a *acceptor) serveTCP(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("FIX acceptor listening on %s (tcp)", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go a.handle(conn)
	}
}

func (a *acceptor) serveWebSocket(port int) error {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		go a.handle(&wsStream{conn: conn})
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("FIX acceptor listening on %s (websocket)", addr)
	return http.ListenAndServe(addr, mux)
}

// stream abstracts a tcp connection and a websocket so one session loop
// serves both modes.
type stream interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

func (a *acceptor) handle(conn stream) {
	defer conn.Close()
	log.Printf("session open from %s", conn.RemoteAddr())

	s := &fixSession{acceptor: a, conn: conn}
	if err := s.run(); err != nil && err != io.EOF {
		log.Printf("session from %s ended: %v", conn.RemoteAddr(), err)
		return
	}
	log.Printf("session from %s closed", conn.RemoteAddr())
}

// fixSession holds the per-connection reply sequence.
type fixSession struct {
	acceptor *acceptor
	conn     stream

	seq    int
	execID int
}

func (s *fixSession) run() error {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		for {
			n, ok := fix.FrameLength(buf)
			if !ok {
				break
			}
			msg, _, err := fix.Decode(buf[:n])
			if err != nil {
				return err
			}
			buf = buf[n:]
			done, err := s.respond(msg)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return err
		}
	}
}

func (s *fixSession) respond(msg *fix.Message) (done bool, err error) {
	switch msg.MsgType() {
	case fix.MsgTypeLogon:
		reply := s.replyTo(msg, fix.MsgTypeLogon)
		reply.Set(fix.TagEncryptMethod, "0")
		if hb, ok := msg.Get(fix.TagHeartBtInt); ok {
			reply.Set(fix.TagHeartBtInt, hb)
		}
		return false, s.send(reply)
	case fix.MsgTypeLogout:
		return true, s.send(s.replyTo(msg, fix.MsgTypeLogout))
	case fix.MsgTypeTestRequest:
		reply := s.replyTo(msg, fix.MsgTypeHeartbeat)
		if id, ok := msg.Get(fix.TagTestReqID); ok {
			reply.Set(fix.TagTestReqID, id)
		}
		return false, s.send(reply)
	case fix.MsgTypeHeartbeat:
		return false, nil
	}

	key, ok := msg.Get(s.acceptor.corrTag)
	if !ok {
		// Nothing to correlate a report against.
		return false, nil
	}
	s.acceptor.pause()

	s.execID++
	reply := s.replyTo(msg, fix.MsgTypeExecutionReport)
	reply.Set(s.acceptor.corrTag, key)
	reply.Set(17, strconv.Itoa(s.execID))
	if s.acceptor.reject() {
		reply.Set(150, "8")
		reply.Set(39, "8")
		reply.Set(fix.TagText, "rejected by test acceptor")
	} else {
		reply.Set(150, "0")
		reply.Set(39, "0")
	}
	return false, s.send(reply)
}

// replyTo builds a response shell with the inbound comp IDs swapped.
func (s *fixSession) replyTo(inbound *fix.Message, msgType string) *fix.Message {
	reply := fix.NewMessage(msgType)
	begin, ok := inbound.Get(fix.TagBeginString)
	if !ok {
		begin = "FIX.4.4"
	}
	reply.Set(fix.TagBeginString, begin)
	if v, ok := inbound.Get(fix.TagTargetCompID); ok {
		reply.Set(fix.TagSenderCompID, v)
	}
	if v, ok := inbound.Get(fix.TagSenderCompID); ok {
		reply.Set(fix.TagTargetCompID, v)
	}
	return reply
}

func (s *fixSession) send(msg *fix.Message) error {
	s.seq++
	msg.Set(fix.TagMsgSeqNum, strconv.Itoa(s.seq))
	msg.Set(fix.TagSendingTime, time.Now().UTC().Format(fix.SendingTimeLayout))
	wire, err := fix.Encode(msg)
	if err != nil {
		return err
	}
	_, err = s.conn.Write(wire)
	return err
}

func (a *acceptor) pause() {
	d := a.latency
	if a.jitter > 0 {
		a.mu.Lock()
		d += time.Duration(a.rnd.Int63n(int64(a.jitter)))
		a.mu.Unlock()
	}
	if d > 0 {
		time.Sleep(d)
	}
}

func (a *acceptor) reject() bool {
	if a.rejectRate <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rnd.Float64() < a.rejectRate
}

// wsStream adapts a websocket connection to the byte stream the session
// loop reads. Each Write goes out as one binary message.
type wsStream struct {
	conn *websocket.Conn
	rd   io.Reader
}

func (w *wsStream) Read(p []byte) (int, error) {
	for {
		if w.rd == nil {
			_, rd, err := w.conn.NextReader()
			if err != nil {
				return 0, err
			}
			w.rd = rd
		}
		n, err := w.rd.Read(p)
		if err == io.EOF {
			w.rd = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsStream) Close() error { return w.conn.Close() }

func (w *wsStream) RemoteAddr() net.Addr { return w.conn.RemoteAddr() }
