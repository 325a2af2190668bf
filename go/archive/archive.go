// Package archive writes processed messages to disk for offline inspection.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Writer stores each message as an XML file under <dir>/<kind>/<date>/,
// named by receipt time and message reference.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Store writes one message. The reference is sanitized into the file name.
func (w *Writer) Store(kind, ref string, body []byte) error {
	var now = w.now()
	var dir = filepath.Join(w.dir, kind, now.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	var path = filepath.Join(dir, fmt.Sprintf("%s-%s.xml", now.Format("150405.000000000"), sanitize(ref)))
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("writing archive file: %w", err)
	}
	messagesStored.WithLabelValues(kind).Inc()
	log.WithFields(log.Fields{"kind": kind, "path": path}).Debug("archived message")
	return nil
}

func sanitize(ref string) string {
	if ref == "" {
		return "message"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, ref)
}
