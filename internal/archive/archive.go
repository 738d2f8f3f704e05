// Package archive reads the flat "LEG" archive format: a single file whose
// data bodies are followed by a trailing directory table describing where
// each named entry lives. Reads are random-access and case-configurable.
package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/text/cases"
)

const endTableMagic = "LEGARCHTBL"

type entry struct {
	name   string
	offset int64
	length int64
}

// Archive is an opened LEG file: an exclusive handle plus the parsed
// directory table. Reads lock around the seek+read pair so concurrent
// asset-layer callers serialize safely.
type Archive struct {
	mu            sync.Mutex
	file          *os.File
	entries       []entry
	caseSensitive bool
	caser         cases.Caser
}

// Open reads the trailing directory of path and returns a ready-to-read
// Archive. The file handle stays open for the Archive's lifetime; call
// Close when done.
func Open(path string, caseSensitive bool) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	a := &Archive{
		file:          f,
		caseSensitive: caseSensitive,
		caser:         cases.Fold(),
	}
	if err := a.readDirectory(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) readDirectory() error {
	info, err := a.file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	if info.Size() < 8 {
		return fmt.Errorf("archive too small to contain a trailer")
	}

	var trailer [8]byte
	if _, err := a.file.ReadAt(trailer[:], info.Size()-8); err != nil {
		return fmt.Errorf("reading trailer: %w", err)
	}
	// Documented deliberate choice: the trailer is read little-endian here.
	// The original reader decodes it native-endian; on a big-endian host
	// that would disagree with this implementation. See DESIGN.md.
	start := int64(binary.LittleEndian.Uint64(trailer[:]))

	if start < 0 || start >= info.Size() {
		return fmt.Errorf("archive directory offset %d out of range", start)
	}
	if _, err := a.file.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to directory: %w", err)
	}

	r := bufio.NewReader(a.file)

	var magic [10]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("reading directory magic: %w", err)
	}
	if string(magic[:]) != endTableMagic {
		return fmt.Errorf("archive directory magic mismatch: got %q, want %q", magic, endTableMagic)
	}

	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return fmt.Errorf("reading directory count: %w", err)
	}
	count := int32(binary.LittleEndian.Uint32(countBuf[:]))
	if count < 0 {
		return fmt.Errorf("archive directory count %d is negative", count)
	}

	entries := make([]entry, 0, count)
	for i := int32(0); i < count; i++ {
		name, err := r.ReadString(0)
		if err != nil {
			return fmt.Errorf("reading directory entry %d name: %w", i, err)
		}
		name = name[:len(name)-1] // drop the NUL terminator

		var offBuf [8]byte
		if _, err := io.ReadFull(r, offBuf[:]); err != nil {
			return fmt.Errorf("reading directory entry %d offset: %w", i, err)
		}
		offset := int64(binary.LittleEndian.Uint64(offBuf[:]))

		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return fmt.Errorf("reading directory entry %d length: %w", i, err)
		}
		length := int64(int32(binary.LittleEndian.Uint32(lenBuf[:])))

		entries = append(entries, entry{name: name, offset: offset, length: length})
	}

	a.entries = entries
	return nil
}

// Read returns the byte content of name. A miss is not an error: it
// returns (nil, nil) so callers can fall back to a filesystem search
// without needing to distinguish "absent" from an I/O failure. Lookups
// are case-sensitive or Unicode-fold-insensitive depending on how the
// Archive was opened.
func (a *Archive) Read(name string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.find(name)
	if !ok {
		return nil, nil
	}

	buf := make([]byte, e.length)
	if _, err := a.file.Seek(e.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: seeking to %q: %w", name, err)
	}
	if _, err := io.ReadFull(a.file, buf); err != nil {
		return nil, fmt.Errorf("archive: reading %q: %w", name, err)
	}
	return buf, nil
}

func (a *Archive) find(name string) (entry, bool) {
	for _, e := range a.entries {
		if a.equal(e.name, name) {
			return e, true
		}
	}
	return entry{}, false
}

func (a *Archive) equal(a1, b string) bool {
	if a.caseSensitive {
		return a1 == b
	}
	return a.caser.String(a1) == a.caser.String(b)
}

// Names returns every entry name in directory order.
func (a *Archive) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.file.Close()
}
