package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghalamif/RigFlow/internal/codec"
	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

const (
	recordHeaderLen = 12
	DefaultFileName = "rigflow.journal"
)

// FileJournal appends run events as length-prefixed CBOR records:
// [8 bytes id][4 bytes len][len bytes cbor]. A torn trailing record left by a
// crash is cut off when the file is reopened.
type FileJournal struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	writer    *bufio.Writer
	lastID    ports.JournalEntryID
	entries   uint64
	sizeBytes int64
}

// Open creates dir if needed and opens (or resumes) the journal file in it.
func Open(dir, name string) (*FileJournal, error) {
	if name == "" {
		name = DefaultFileName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	j := &FileJournal{
		path:   path,
		file:   f,
		writer: bufio.NewWriterSize(f, 64<<10),
	}
	if err := j.scanExisting(); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(j.sizeBytes, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) Path() string { return j.path }

func (j *FileJournal) scanExisting() error {
	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var offset int64

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan header: %w", err)
		}
		id := ports.JournalEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := int64(binary.BigEndian.Uint32(hdr[8:12]))

		if _, err := io.CopyN(io.Discard, reader, length); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan body: %w", err)
		}
		offset += recordHeaderLen + length
		j.lastID = id
		j.entries++
	}

	if err := j.file.Truncate(offset); err != nil {
		return err
	}
	j.sizeBytes = offset
	return nil
}

func (j *FileJournal) Append(e *domain.RunEvent) (ports.JournalEntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	b, err := codec.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("encode journal entry: %w", err)
	}

	id := j.lastID + 1
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := j.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := j.writer.Write(b); err != nil {
		return 0, err
	}

	j.lastID = id
	j.entries++
	j.sizeBytes += int64(len(b) + len(hdr))
	return id, nil
}

func (j *FileJournal) Iterate(from ports.JournalEntryID, fn func(id ports.JournalEntryID, e *domain.RunEvent) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return readRecords(f, from, false, fn)
}

// Replay reads the journal at path without opening it for writing, so a
// journal that a run is still appending to, or one on a read-only share, can
// be inspected. A torn trailing record ends the replay without an error.
func Replay(path string, from ports.JournalEntryID, fn func(id ports.JournalEntryID, e *domain.RunEvent) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return readRecords(f, from, true, fn)
}

func readRecords(rd io.Reader, from ports.JournalEntryID, tornTailOK bool, fn func(id ports.JournalEntryID, e *domain.RunEvent) error) error {
	r := bufio.NewReader(rd)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || (tornTailOK && errors.Is(err, io.ErrUnexpectedEOF)) {
				return nil
			}
			return fmt.Errorf("journal truncated header: %w", err)
		}
		id := ports.JournalEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		b := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.ReadFull(r, b); err != nil {
			if tornTailOK && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
				return nil
			}
			return fmt.Errorf("corrupt journal: %w", err)
		}
		if id < from {
			continue
		}

		var e domain.RunEvent
		if err := codec.Unmarshal(b, &e); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if err := fn(id, &e); err != nil {
			return err
		}
	}
}

// Sync flushes buffered records and fsyncs the file.
func (j *FileJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		Entries:   j.entries,
		LatestID:  j.lastID,
		SizeBytes: j.sizeBytes,
	}
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	flushErr := j.writer.Flush()
	return errors.Join(flushErr, j.file.Close())
}

var _ ports.Journal = (*FileJournal)(nil)
