package demux

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/fixfire/internal/fix"
)

// ReaderOptions configures the response reader.
type ReaderOptions struct {
	Source   io.Reader
	Registry *Registry

	// CorrelationTag is the tag the correlation key is extracted from.
	// Defaults to ClOrdID (11).
	CorrelationTag int

	// Observer receives frames that match no pending key: session-level
	// traffic (heartbeats, test requests) and late responses. May be nil;
	// observed frames are dropped afterwards either way.
	Observer func(*fix.Message)

	Logger zerolog.Logger
}

// Reader is the one goroutine that owns the session's read side. It
// reassembles frames from the byte stream, extracts the correlation key,
// and resolves the matching pending slot.
type Reader struct {
	src      io.Reader
	registry *Registry
	tag      int
	observer func(*fix.Message)
	log      zerolog.Logger
}

func NewReader(opts ReaderOptions) *Reader {
	tag := opts.CorrelationTag
	if tag == 0 {
		tag = fix.TagClOrdID
	}
	return &Reader{
		src:      opts.Source,
		registry: opts.Registry,
		tag:      tag,
		observer: opts.Observer,
		log:      opts.Logger.With().Str("component", "demux").Logger(),
	}
}

// Run reads until the stream ends or ctx is canceled. Canceling ctx and
// closing the connection is the expected shutdown path; a read error while
// ctx is still live is a connection loss, which fails every pending key so
// no waiter hangs.
func (r *Reader) Run(ctx context.Context) error {
	var buf []byte
	tmp := make([]byte, 8192)
	for {
		for {
			n, ok := fix.FrameLength(buf)
			if !ok {
				break
			}
			r.dispatch(buf[:n], time.Now())
			buf = buf[n:]
		}

		n, err := r.src.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.registry.FailAll(fmt.Errorf("demux: connection lost: %w", err))
			return err
		}
	}
}

func (r *Reader) dispatch(frame []byte, at time.Time) {
	msg, _, err := fix.Decode(frame)
	if err != nil {
		// Malformed frames are dropped; the next frame boundary resyncs
		// the stream.
		r.log.Debug().Err(err).Msg("dropping malformed frame")
		return
	}

	if key, ok := msg.Get(r.tag); ok && key != "" {
		if r.registry.Resolve(key, msg, at) {
			return
		}
	}

	if r.observer != nil {
		r.observer(msg)
		return
	}
	r.log.Debug().
		Str("msg_type", msg.MsgType()).
		Msg("dropping unmatched frame")
}
