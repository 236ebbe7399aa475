// Package journal persists the order-entry command stream to an
// append-only log so a restarted process can rebuild its book by
// replaying the commands through the same codepath that first applied
// them. The engine itself stays I/O-free; journalling happens in the
// gateway, ahead of the book.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const activeSegment = "journal.log"

type Config struct {
	Dir string

	// SegmentSize and SegmentAge bound the active segment; crossing
	// either rotates it out under a timestamped name.
	SegmentSize int64
	SegmentAge  time.Duration

	// FlushInterval drives the background fsync. Zero disables it.
	FlushInterval time.Duration
}

type Journal struct {
	cfg  Config
	mu   sync.Mutex
	file *os.File

	bytes   int64
	started time.Time
	done    chan struct{}
}

// Open creates or appends to the journal under cfg.Dir.
func Open(cfg Config) (*Journal, error) {
	if cfg.Dir == "" {
		return nil, errors.New("journal dir not set")
	}
	if cfg.SegmentSize == 0 {
		cfg.SegmentSize = 2 * 1024 * 1024
	}
	if cfg.SegmentAge == 0 {
		cfg.SegmentAge = 5 * time.Minute
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	path := filepath.Join(cfg.Dir, activeSegment)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal segment: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat journal segment: %w", err)
	}

	j := &Journal{
		cfg:     cfg,
		file:    f,
		bytes:   info.Size(),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	if cfg.FlushInterval > 0 {
		go j.autoFlush()
	}
	return j, nil
}

// Append writes one record and rotates the segment if it crossed a
// size or age bound.
func (j *Journal) Append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.Time == 0 {
		rec.Time = time.Now().UnixNano()
	}
	n, err := j.file.Write(encodeRecord(rec))
	if err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	j.bytes += int64(n)
	if j.bytes > j.cfg.SegmentSize || time.Since(j.started) > j.cfg.SegmentAge {
		if err := j.rotate(); err != nil {
			log.Error().Err(err).Msg("journal rotation failed")
		}
	}
	return nil
}

// Replay streams every record, oldest segment first, stopping at the
// first torn record. The callback returning an error aborts the replay.
func (j *Journal) Replay(fn func(Record) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, path := range j.segmentPaths() {
		if err := replaySegment(path, fn); err != nil {
			return err
		}
	}
	return nil
}

// Sync forces the active segment to stable storage.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Sync()
}

func (j *Journal) Close() error {
	close(j.done)
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.file.Sync(); err != nil {
		return err
	}
	return j.file.Close()
}

// segmentPaths lists rotated segments in name (= time) order, with the
// active segment last.
func (j *Journal) segmentPaths() []string {
	entries, err := os.ReadDir(j.cfg.Dir)
	if err != nil {
		return nil
	}
	var rotated []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == activeSegment {
			continue
		}
		if filepath.Ext(e.Name()) == ".log" {
			rotated = append(rotated, filepath.Join(j.cfg.Dir, e.Name()))
		}
	}
	sort.Strings(rotated)
	return append(rotated, filepath.Join(j.cfg.Dir, activeSegment))
}

func replaySegment(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal segment: %w", err)
	}
	defer f.Close()

	for {
		rec, err := decodeRecord(f)
		if err != nil {
			// EOF is a clean end; an unexpected EOF is a torn tail
			// write, also treated as the end of usable history.
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func (j *Journal) rotate() error {
	if err := j.file.Sync(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return err
	}
	active := filepath.Join(j.cfg.Dir, activeSegment)
	rotated := filepath.Join(j.cfg.Dir, time.Now().Format("20060102_150405.000000000")+".log")
	if err := os.Rename(active, rotated); err != nil {
		return err
	}
	f, err := os.OpenFile(active, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.bytes = 0
	j.started = time.Now()
	log.Info().Str("segment", rotated).Msg("journal segment rotated")
	return nil
}

func (j *Journal) autoFlush() {
	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.mu.Lock()
			if err := j.file.Sync(); err != nil {
				log.Error().Err(err).Msg("journal flush failed")
			}
			j.mu.Unlock()
		}
	}
}
