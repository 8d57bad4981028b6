package participants

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sandily/bidskit/internal/bids"
)

// Filename is the participants table in the source directory root.
const Filename = "participants.tsv"

const header = "participant_id\tsex\tage\n"

// Table accumulates participant rows during one organizing pass. The file is
// truncated and its header rewritten when the table is created.
type Table struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
	seen   map[string]struct{}
}

// Create truncates the table in sourceDir and writes the header.
func Create(sourceDir string) (*Table, error) {
	path := filepath.Join(sourceDir, Filename)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create participants table: %w", err)
	}
	w := bufio.NewWriter(file)
	if _, err := w.WriteString(header); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write participants header: %w", err)
	}
	return &Table{path: path, file: file, writer: w, seen: make(map[string]struct{})}, nil
}

// Path returns the table location.
func (t *Table) Path() string {
	return t.path
}

// Has reports whether subject already has a row.
func (t *Table) Has(subject string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[subject]
	return ok
}

// Append writes a row for subject unless one was already written. It reports
// whether a row was added.
func (t *Table) Append(subject string, demo Demographics) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[subject]; ok {
		return false, nil
	}
	if _, err := fmt.Fprintf(t.writer, "%s\t%s\t%s\n", bids.SubjectDir(subject), demo.Sex, demo.Age); err != nil {
		return false, fmt.Errorf("append participant: %w", err)
	}
	t.seen[subject] = struct{}{}
	return true, nil
}

// Rows returns the number of participants written.
func (t *Table) Rows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Close flushes and closes the table.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	flushErr := t.writer.Flush()
	closeErr := t.file.Close()
	t.file = nil
	if flushErr != nil {
		return fmt.Errorf("flush participants table: %w", flushErr)
	}
	return closeErr
}
