// Package journal is an append-only log of decoded feed events,
// length-prefixed msgpack records. Because every window in the engine
// is anchored on exchange timestamps, replaying a journal reproduces
// the exact signal decisions of the live run.
package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	KindDepth = "depth"
	KindTrade = "trade"
)

// maxRecordSize bounds a single record so a corrupt length prefix
// cannot trigger an unbounded allocation.
const maxRecordSize = 1 << 20

type Record struct {
	Kind         string       `msgpack:"k"`
	TimeMS       int64        `msgpack:"t"`
	Bids         [][2]float64 `msgpack:"b,omitempty"`
	Asks         [][2]float64 `msgpack:"a,omitempty"`
	Price        float64      `msgpack:"p,omitempty"`
	Quantity     float64      `msgpack:"q,omitempty"`
	BuyerIsMaker bool         `msgpack:"m,omitempty"`
}

type Writer struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, w: bufio.NewWriter(f)}, nil
}

func (w *Writer) Append(rec Record) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	if len(payload) > maxRecordSize {
		return fmt.Errorf("journal record too large: %d bytes", len(payload))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

type Reader struct {
	r *bufio.Reader
	c io.Closer
}

func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{r: bufio.NewReader(f), c: f}, nil
}

// Next returns the next record, or io.EOF at a clean end of log. A
// truncated tail surfaces as ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Record{}, io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > maxRecordSize {
		return Record{}, fmt.Errorf("journal record length %d exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.EOF {
			return Record{}, io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Reader) Close() error {
	return r.c.Close()
}
