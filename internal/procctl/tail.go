package procctl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"strata/pkg/logging"
)

const defaultTailPoll = time.Second

// FileTailer reads the log file of a bare-metal process.
type FileTailer struct {
	Path string
	// PollInterval is the fallback re-read interval used alongside (or,
	// when fsnotify is unavailable, instead of) file events.
	PollInterval time.Duration
}

// Tail returns the last n lines of the file, or every line when n <= 0. A
// missing file yields no lines.
func (t *FileTailer) Tail(n int) ([]string, error) {
	lines, _, err := t.tail(n)
	return lines, err
}

func (t *FileTailer) tail(n int) ([]string, int64, error) {
	f, err := os.Open(t.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	defer f.Close()

	var lines []string
	var offset int64
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 && strings.HasSuffix(line, "\n") {
			offset += int64(len(line))
			lines = append(lines, strings.TrimRight(line, "\r\n"))
			if n > 0 && len(lines) > n {
				lines = lines[1:]
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// An unterminated final line is left for the follower.
				break
			}
			return nil, 0, err
		}
	}
	return lines, offset, nil
}

// Follow returns a reader yielding the last n lines followed by everything
// appended to the file until ctx is done or the reader is closed. Truncation
// and rotation restart reading from the beginning of the new file.
func (t *FileTailer) Follow(ctx context.Context, n int) (io.ReadCloser, error) {
	lines, offset, err := t.tail(n)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	var events <-chan fsnotify.Event
	var errs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn(subsystem, "fsnotify not available, falling back to polling: %v", err)
		watcher = nil
	} else if err := watcher.Add(filepath.Dir(t.Path)); err != nil {
		logging.Warn(subsystem, "Failed to watch %s, falling back to polling: %v", filepath.Dir(t.Path), err)
		watcher.Close()
		watcher = nil
	} else {
		events = watcher.Events
		errs = watcher.Errors
	}

	go func() {
		defer cancel()
		if watcher != nil {
			defer watcher.Close()
		}

		if len(lines) > 0 {
			if _, err := io.WriteString(pw, strings.Join(lines, "\n")+"\n"); err != nil {
				return
			}
		}
		t.follow(ctx, pw, offset, events, errs)
	}()

	return &followReader{PipeReader: pr, cancel: cancel}, nil
}

func (t *FileTailer) follow(ctx context.Context, pw *io.PipeWriter, offset int64, events <-chan fsnotify.Event, errs <-chan error) {
	interval := t.PollInterval
	if interval <= 0 {
		interval = defaultTailPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var err error
	for {
		select {
		case <-ctx.Done():
			pw.Close()
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(t.Path) {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				offset = 0
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
		case werr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logging.Error(subsystem, werr, "fsnotify error on %s", t.Path)
			continue
		case <-ticker.C:
		}

		offset, err = t.copyFrom(pw, offset)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
	}
}

// copyFrom writes the bytes after offset to w and returns the new offset.
func (t *FileTailer) copyFrom(w io.Writer, offset int64) (int64, error) {
	f, err := os.Open(t.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, err
	}
	if info.Size() < offset {
		logging.Debug(subsystem, "%s was truncated, reading from start", t.Path)
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, err
	}
	n, err := io.Copy(w, io.LimitReader(f, info.Size()-offset))
	return offset + n, err
}

type followReader struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (r *followReader) Close() error {
	r.cancel()
	return r.PipeReader.Close()
}
