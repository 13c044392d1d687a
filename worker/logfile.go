package worker

import (
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// removableHook writes every log entry to a file while active, then goes
// silent once disabled. logrus has no RemoveHook, so cleanup flips this flag
// instead of detaching — the Go shape of original_source's init_logging,
// which attaches a logging.FileHandler and returns a CleanupHandler that
// removes it.
type removableHook struct {
	file      *os.File
	formatter logrus.Formatter
	active    atomic.Bool
}

// newFileLogHook opens (creating if needed) path for append and returns a
// hook ready to be attached with logrus.Logger.AddHook.
func newFileLogHook(path string) (*removableHook, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	h := &removableHook{file: f, formatter: &logrus.TextFormatter{FullTimestamp: true}}
	h.active.Store(true)
	return h, nil
}

func (h *removableHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *removableHook) Fire(entry *logrus.Entry) error {
	if !h.active.Load() {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.file.Write(line)
	return err
}

func (h *removableHook) disable() { h.active.Store(false) }

func (h *removableHook) Close() error { return h.file.Close() }
