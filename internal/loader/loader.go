// Package loader reads the raw corpus into normalized Document records.
//
// Two raw forms are supported: a bulk record file where each line is an
// independent JSON object ({"text", "source", "id"}), and a directory of
// plain-text files. Detection order: a data.jsonl file in the corpus root, a
// data.txt file whose first line parses as a record, then directory loading.
package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
)

// bulkRecord is the per-line schema of a bulk record file. Only text is
// required; missing optional fields default to empty strings.
type bulkRecord struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	ID     string `json:"id"`
}

// Result is a loaded corpus plus per-line skip accounting.
type Result struct {
	Documents []domain.Document
	// Skipped counts malformed or unusable bulk record lines. Skips never
	// abort a load.
	Skipped int
}

// Load resolves and reads the corpus rooted at path. Returns ErrCorpusEmpty
// when the resolved corpus contains zero usable documents.
func Load(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, domain.ErrCorpusEmpty)
	}

	var res *Result
	switch {
	case !info.IsDir():
		res, err = loadBulk(path)
	default:
		res, err = loadDir(path)
	}
	if err != nil {
		return nil, err
	}
	if len(res.Documents) == 0 {
		return nil, fmt.Errorf("corpus %s: %w", path, domain.ErrCorpusEmpty)
	}
	return res, nil
}

func loadDir(root string) (*Result, error) {
	if p := filepath.Join(root, "data.jsonl"); fileExists(p) {
		logger.Debug("corpus: bulk record file %s", p)
		return loadBulk(p)
	}
	if p := filepath.Join(root, "data.txt"); fileExists(p) && firstLineIsRecord(p) {
		logger.Debug("corpus: %s looks like bulk records", p)
		return loadBulk(p)
	}
	return loadTextFiles(root)
}

// loadBulk reads one JSON record per line. Malformed lines are logged and
// skipped; they never abort the run.
func loadBulk(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	res := &Result{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec bulkRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			perr := &domain.ParseError{Line: lineNo, Err: err}
			logger.Warn("skipping malformed record: %v", perr)
			res.Skipped++
			continue
		}
		if strings.TrimSpace(rec.Text) == "" {
			perr := &domain.ParseError{Line: lineNo, Err: fmt.Errorf("missing required field %q", "text")}
			logger.Warn("skipping record: %v", perr)
			res.Skipped++
			continue
		}
		id := rec.ID
		if id == "" {
			// Anonymous records get a positional id so chunk ids derived
			// from (source, id) stay unique across the corpus.
			id = "#" + strconv.Itoa(lineNo)
		}
		res.Documents = append(res.Documents, domain.Document{
			ID:     id,
			Source: rec.Source,
			Text:   rec.Text,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	return res, nil
}

// loadTextFiles walks the corpus directory; each .txt file becomes one
// document whose id is its path relative to the root.
func loadTextFiles(root string) (*Result, error) {
	res := &Result{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		res.Documents = append(res.Documents, domain.Document{
			ID:     rel,
			Source: rel,
			Text:   string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func firstLineIsRecord(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return false
	}
	line := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(line, "{") {
		return false
	}
	var rec bulkRecord
	return json.Unmarshal([]byte(line), &rec) == nil
}
