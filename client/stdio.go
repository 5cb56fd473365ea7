package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/thadeucbr/mcp-tools/protocol"
)

var errClosed = errors.New("transport closed")

// StdioTransport talks newline-delimited JSON-RPC over a pair of pipes,
// usually the stdin/stdout of a server subprocess.
type StdioTransport struct {
	cmd *exec.Cmd
	in  io.WriteCloser

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *protocol.Response
	closed  bool

	readDone chan struct{}
}

// NewStdioTransport starts command and talks to it over its stdio. The
// child's stderr is inherited unless the command sets it.
func NewStdioTransport(command string, args ...string) (*StdioTransport, error) {
	cmd := exec.Command(command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	t := NewPipeTransport(stdout, stdin)
	t.cmd = cmd
	return t, nil
}

// NewPipeTransport talks to a server reading from in and writing to out.
func NewPipeTransport(out io.Reader, in io.WriteCloser) *StdioTransport {
	t := &StdioTransport{
		in:       in,
		pending:  make(map[string]chan *protocol.Response),
		readDone: make(chan struct{}),
	}
	go t.readResponses(out)
	return t
}

// Send writes req and waits for the response with the same id.
func (t *StdioTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	key := string(req.ID)
	ch := make(chan *protocol.Response, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errClosed
	}
	t.pending[key] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
	}()

	if err := t.write(req); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.readDone:
		return nil, fmt.Errorf("server closed stdout: %w", io.ErrUnexpectedEOF)
	case resp := <-ch:
		return resp, nil
	}
}

// Notify writes a notification.
func (t *StdioTransport) Notify(_ context.Context, req *protocol.Request) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errClosed
	}
	return t.write(req)
}

// Close closes the server's stdin and, for subprocesses, waits for exit.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.in.Close()
	if t.cmd != nil {
		<-t.readDone
		return t.cmd.Wait()
	}
	return err
}

func (t *StdioTransport) write(req *protocol.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.in.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func (t *StdioTransport) readResponses(out io.Reader) {
	defer close(t.readDone)

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	for scanner.Scan() {
		var resp protocol.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}

		t.mu.Lock()
		ch, ok := t.pending[string(resp.ID)]
		t.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}
