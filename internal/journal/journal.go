package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"localgroup/internal/clock"
)

// Causes of a transition.
const (
	CauseSeed     = "seed"
	CauseSendData = "send_data"
	CauseAck      = "ack"
)

// Event is one element transition on one node.
type Event struct {
	Time     time.Time `json:"ts"`
	Node     uint32    `json:"node"`
	Element  uint8     `json:"element"`
	Cause    string    `json:"cause"`
	Peer     uint32    `json:"peer,omitempty"`
	Version  uint8     `json:"version"`
	Round    uint8     `json:"round"`
	Agreeing []uint32  `json:"agreeing,omitempty"`
}

// Stamp returns the event's (version, round).
func (e Event) Stamp() clock.Stamp {
	return clock.Stamp{Version: e.Version, Round: e.Round}
}

// Sink receives transitions.
type Sink interface {
	Record(Event)
}

// Writer appends events to an io.Writer, one JSON object per line. It is
// safe for concurrent use. The first write error is kept and reported by
// Err; later events are discarded.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	w := NewWriter(f)
	w.c = f
	return w, nil
}

// Record implements Sink.
func (w *Writer) Record(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(ev); err != nil {
		w.err = fmt.Errorf("write journal: %w", err)
	}
}

// Err returns the first write error.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close closes the underlying file, if Open created it.
func (w *Writer) Close() error {
	if w.c == nil {
		return w.Err()
	}
	if err := w.c.Close(); err != nil {
		return err
	}
	return w.Err()
}

// Read decodes every event in r. Blank lines are skipped.
func Read(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return events, nil
}

// ReadFile reads every event in the file at path.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	return Read(f)
}
