// Package transport implements the out-of-scope message-delivery
// collaborator (spec.md §6): send_syscheck_msg and send_log_msg. The
// core only ever talks to the fim.Transport interface; this stdout
// implementation is the one concrete delivery mechanism this repository
// ships, suitable for `fimagent scan`/`fimagent watch` piping events
// into another process.
package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/wazuh-go/fim-core/internal/fim"
)

// Stdout writes every emitted event and scan bracket as one JSON object
// per line to the wrapped writer, serialized by a mutex since fsnotify
// and the scheduled-scan goroutine may call it concurrently.
type Stdout struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewStdout wraps w (typically os.Stdout) in a buffered, line-flushing
// writer.
func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: bufio.NewWriter(w)}
}

func (s *Stdout) SendEvent(ev fim.EventEnvelope) error {
	return s.writeLine(ev)
}

func (s *Stdout) SendScanBracket(b fim.ScanBracketEvent) error {
	return s.writeLine(b)
}

func (s *Stdout) SendLogMessage(text string) error {
	return s.writeLine(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "log", Text: text})
}

func (s *Stdout) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: failed to marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("transport: write failed: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("transport: write failed: %w", err)
	}
	return s.w.Flush()
}
