package channel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// maxLineSize bounds a single encoded call.
const maxLineSize = 1 << 20

// Server reads calls from a line-oriented stream and writes responses and
// events to w. Writes are serialized because events come from load
// goroutines while responses come from the serve loop.
type Server struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closed bool
}

// NewServer creates a server writing to w.
func NewServer(w io.Writer) *Server {
	return &Server{enc: json.NewEncoder(w)}
}

// Emit writes an event to the host.
func (s *Server) Emit(name string, args map[string]any) error {
	return s.write(event{Event: name, Arguments: args})
}

func (s *Server) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("write to host: %w", err)
	}
	return nil
}

// Serve dispatches calls read from r in arrival order until r is exhausted
// or ctx is done. A call longer than maxLineSize is answered with an
// InvalidArgument error and skipped.
func (s *Server) Serve(ctx context.Context, r io.Reader, d *Dispatcher) error {
	lines := make(chan line)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		br := bufio.NewReaderSize(r, 64*1024)
		for {
			l, err := readLine(br)
			if len(l.data) > 0 || l.oversized {
				select {
				case lines <- l:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	defer func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	}()

	log.Debug("Serving method calls", "methods", d.Methods())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("read from host: %w", err)
				default:
				}
				return nil
			}
			if l.oversized {
				log.Warn("Rejecting oversized call", "limit", maxLineSize)
				if err := s.write(newResponse(nil, Result{Err: invalidArgument("call exceeds %d bytes", maxLineSize)})); err != nil {
					return err
				}
				continue
			}
			if err := s.handle(ctx, l.data, d); err != nil {
				return err
			}
		}
	}
}

// line is one newline-terminated call. Oversized lines carry no data.
type line struct {
	data      []byte
	oversized bool
}

// readLine reads up to the next newline. Bytes past maxLineSize are
// discarded so the stream stays aligned on the following call.
func readLine(br *bufio.Reader) (line, error) {
	var l line
	for {
		chunk, err := br.ReadSlice('\n')
		if !l.oversized {
			if len(l.data)+len(chunk) > maxLineSize+1 {
				l.data, l.oversized = nil, true
			} else {
				l.data = append(l.data, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		l.data = bytes.TrimSuffix(l.data, []byte("\n"))
		return l, err
	}
}

func (s *Server) handle(ctx context.Context, line []byte, d *Dispatcher) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	req, err := decodeRequest(line)
	if err != nil {
		log.Debug("Rejecting malformed call", "error", err)
		return s.write(newResponse(req.ID, Result{Err: NewError(CodeInvalidArgument, err)}))
	}

	res := d.Dispatch(ctx, Call{Method: req.Method, Arguments: req.Arguments})
	if err := s.write(newResponse(req.ID, res)); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	}
	return nil
}
