// Package trace records per-epoch state digests of a simulation run into a
// zstd-compressed stream, and replays them to check that a run is
// reproducible.
//
// Trace layout (all integers little-endian, inside one zstd frame):
//
//	Header:
//	  magic       [4]byte  "CRTR"
//	  version     uint16
//	  seed        uint64
//	  width       uint32
//	  height      uint32
//	  critters    uint32
//	  roster      [32]byte roster digest
//	  names       uint32 count, then per name: uint16 length + bytes
//
//	Record (repeated until EOF):
//	  epoch       int64
//	  digest      [32]byte
//	  turns       uint32
//	  bonus       uint32
//	  faults      uint32
//	  alive       uint32 count, then one uint32 per roster species
package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/fortiblox/critters/internal/types"
	"github.com/fortiblox/critters/pkg/world"
)

// FileExt is the extension of trace files.
const FileExt = ".trace.zst"

// Version is the trace format version written by this package.
const Version uint16 = 1

var magic = [4]byte{'C', 'R', 'T', 'R'}

// Errors.
var (
	ErrBadMagic          = errors.New("not a critter trace")
	ErrUnsupportedFormat = errors.New("unsupported trace version")
	ErrDecompression     = errors.New("trace decompression failed")
	ErrTruncated         = errors.New("trace truncated")
)

// Header describes the run a trace was taken from.
type Header struct {
	Seed     uint64
	Width    int
	Height   int
	Critters int
	Roster   types.Hash
	Species  []string
}

// Record is one epoch of a trace. Digest is the environment digest after the
// epoch completed.
type Record struct {
	Epoch      int64
	Digest     types.Hash
	Turns      int
	BonusTurns int
	Faults     int
	Alive      []int
}

// RecordOf builds the record for an epoch that just finished.
func RecordOf(env *world.Environment, report world.EpochReport) Record {
	census := env.Census()
	alive := make([]int, len(census))
	for i, c := range census {
		alive[i] = c.Alive
	}
	return Record{
		Epoch:      report.Epoch,
		Digest:     env.Digest(),
		Turns:      report.Turns,
		BonusTurns: report.BonusTurns,
		Faults:     len(report.Faults),
		Alive:      alive,
	}
}

// HeaderOf builds the trace header for a freshly created environment.
func HeaderOf(env *world.Environment) Header {
	return Header{
		Seed:     env.Seed(),
		Width:    env.Width(),
		Height:   env.Height(),
		Critters: len(env.Critters()),
		Roster:   env.Roster().Digest(),
		Species:  env.Roster().Names(),
	}
}

// Writer appends records to a compressed trace.
type Writer struct {
	enc    *zstd.Encoder
	closer io.Closer
	buf    []byte
}

// NewWriter writes the header to w and returns a Writer for the records.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	tw := &Writer{enc: enc}
	if err := tw.writeHeader(h); err != nil {
		enc.Close()
		return nil, err
	}
	return tw, nil
}

// Create creates a trace file at path.
func Create(path string, h Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace: %w", err)
	}
	w, err := NewWriter(f, h)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func (w *Writer) writeHeader(h Header) error {
	b := w.buf[:0]
	b = append(b, magic[:]...)
	b = binary.LittleEndian.AppendUint16(b, Version)
	b = binary.LittleEndian.AppendUint64(b, h.Seed)
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Width))
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Height))
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Critters))
	b = append(b, h.Roster[:]...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(h.Species)))
	for _, name := range h.Species {
		b = binary.LittleEndian.AppendUint16(b, uint16(len(name)))
		b = append(b, name...)
	}
	w.buf = b
	_, err := w.enc.Write(b)
	return err
}

// Write appends one record.
func (w *Writer) Write(r Record) error {
	b := w.buf[:0]
	b = binary.LittleEndian.AppendUint64(b, uint64(r.Epoch))
	b = append(b, r.Digest[:]...)
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Turns))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.BonusTurns))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Faults))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(r.Alive)))
	for _, n := range r.Alive {
		b = binary.LittleEndian.AppendUint32(b, uint32(n))
	}
	w.buf = b
	if _, err := w.enc.Write(b); err != nil {
		return fmt.Errorf("write record %d: %w", r.Epoch, err)
	}
	return nil
}

// Close flushes the compressed stream and closes the file, if any.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader decodes a compressed trace.
type Reader struct {
	dec    *zstd.Decoder
	closer io.Closer
	header Header
}

// NewReader decodes the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	tr := &Reader{dec: dec}
	if err := tr.readHeader(); err != nil {
		dec.Close()
		if err == io.EOF {
			err = ErrTruncated
		}
		return nil, err
	}
	return tr, nil
}

// Open opens the trace file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Header returns the trace header.
func (r *Reader) Header() Header { return r.header }

func (r *Reader) readHeader() error {
	var m [4]byte
	if err := r.read(m[:]); err != nil {
		return err
	}
	if m != magic {
		return ErrBadMagic
	}
	version, err := r.u16()
	if err != nil {
		return err
	}
	if version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, version)
	}

	h := &r.header
	if h.Seed, err = r.u64(); err != nil {
		return err
	}
	dims := make([]uint32, 3)
	for i := range dims {
		if dims[i], err = r.u32(); err != nil {
			return err
		}
	}
	h.Width, h.Height, h.Critters = int(dims[0]), int(dims[1]), int(dims[2])
	if err := r.read(h.Roster[:]); err != nil {
		return err
	}
	n, err := r.u32()
	if err != nil {
		return err
	}
	h.Species = make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		size, err := r.u16()
		if err != nil {
			return err
		}
		name := make([]byte, size)
		if err := r.read(name); err != nil {
			return err
		}
		h.Species = append(h.Species, string(name))
	}
	return nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var rec Record
	epoch, err := r.u64()
	if err != nil {
		return rec, err
	}
	rec.Epoch = int64(epoch)
	if err := r.readBody(&rec); err != nil {
		if err == io.EOF {
			err = ErrTruncated
		}
		return rec, err
	}
	return rec, nil
}

func (r *Reader) readBody(rec *Record) error {
	if err := r.read(rec.Digest[:]); err != nil {
		return err
	}
	counts := make([]uint32, 4)
	for i := range counts {
		var err error
		if counts[i], err = r.u32(); err != nil {
			return err
		}
	}
	rec.Turns, rec.BonusTurns, rec.Faults = int(counts[0]), int(counts[1]), int(counts[2])
	rec.Alive = make([]int, counts[3])
	for i := range rec.Alive {
		n, err := r.u32()
		if err != nil {
			return err
		}
		rec.Alive[i] = int(n)
	}
	return nil
}

// read fills b. It returns io.EOF only when the stream ended cleanly before
// the first byte.
func (r *Reader) read(b []byte) error {
	_, err := io.ReadFull(r.dec, b)
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrTruncated
	}
	return fmt.Errorf("%w: %v", ErrDecompression, err)
}

func (r *Reader) u16() (uint16, error) {
	var b [2]byte
	err := r.read(b[:])
	return binary.LittleEndian.Uint16(b[:]), err
}

func (r *Reader) u32() (uint32, error) {
	var b [4]byte
	err := r.read(b[:])
	return binary.LittleEndian.Uint32(b[:]), err
}

func (r *Reader) u64() (uint64, error) {
	var b [8]byte
	err := r.read(b[:])
	return binary.LittleEndian.Uint64(b[:]), err
}

// ReadAll returns every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Close releases the decoder and closes the file, if any.
func (r *Reader) Close() error {
	r.dec.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
