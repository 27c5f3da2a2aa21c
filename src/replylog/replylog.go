// Package replylog persists raw model replies for offline inspection.
// Writes are best-effort: a failure is logged and never propagated.
package replylog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

type Writer struct {
	dir string
	now func() time.Time
}

func New(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write stores raw under a timestamped file name and returns the path.
// On any error it returns "" after logging; the capture cycle never
// fails because of the diagnostic log.
func (w *Writer) Write(raw string) string {
	if w == nil || w.dir == "" || raw == "" {
		return ""
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		log.Printf("Reply log: failed to create dir %s: %v", w.dir, err)
		return ""
	}

	name := fmt.Sprintf("reply_%s.log", w.now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		log.Printf("Reply log: failed to write %s: %v", path, err)
		return ""
	}
	return path
}
