// Package logreader reads the JSON request log written by the request log
// emitter, including segments rotated away by lumberjack.
package logreader

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/supportdesk/supportgate/internal/pkg/redact"
)

const recordLogType = "http_request"

// Entry is one request record as it appears in the file.
type Entry struct {
	Timestamp       string  `json:"timestamp"`
	Level           string  `json:"level"`
	LogType         string  `json:"log_type"`
	RequestID       string  `json:"request_id"`
	User            string  `json:"user"`
	Method          string  `json:"method"`
	Endpoint        string  `json:"endpoint"`
	StatusCode      int     `json:"status_code"`
	DurationSeconds float64 `json:"duration_seconds"`
	Details         string  `json:"details"`
	Error           string  `json:"error,omitempty"`
	RequestBody     any     `json:"request_body"`
	ResponseBody    any     `json:"response_body"`
}

type Filter struct {
	User   string
	Status int
	Path   string // prefix match
}

func (f Filter) match(e *Entry) bool {
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.Status != 0 && e.StatusCode != f.Status {
		return false
	}
	if f.Path != "" && !strings.HasPrefix(e.Endpoint, f.Path) {
		return false
	}
	return true
}

// Segments lists the files making up the log, oldest first. Without all only
// the active file is returned.
func Segments(active string, all bool) ([]string, error) {
	if !all {
		return []string{active}, nil
	}
	dir := filepath.Dir(active)
	base := filepath.Base(active)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "-"

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var backups []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasSuffix(name, ext) || strings.HasSuffix(name, ext+".gz") {
			backups = append(backups, filepath.Join(dir, name))
		}
	}
	// lumberjack timestamps sort lexically
	sort.Strings(backups)
	return append(backups, active), nil
}

// Result summarizes one pass over the log.
type Result struct {
	Records   int
	Malformed []string // "file:line: reason"
	Leaks     []string // "request_id: path" of unmasked sensitive values
}

// Scan calls fn for every request record matching filter in the given files.
// Lines that are not request records are skipped; lines that are not JSON are
// reported as malformed.
func Scan(paths []string, filter Filter, fn func(*Entry)) (*Result, error) {
	res := &Result{}
	for _, path := range paths {
		if err := scanFile(path, filter, res, fn); err != nil {
			return res, err
		}
	}
	return res, nil
}

func scanFile(path string, filter Filter, res *Result, fn func(*Entry)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			res.Malformed = append(res.Malformed, fmt.Sprintf("%s:%d: %v", path, lineNo, err))
			continue
		}
		if entry.LogType != recordLogType {
			continue
		}
		res.Records++
		if filter.match(&entry) {
			fn(&entry)
		}
	}
	return scanner.Err()
}

// FindLeaks returns the paths of values under sensitive keys that do not
// equal the policy mask.
func FindLeaks(policy *redact.Policy, e *Entry) []string {
	var leaks []string
	walk(policy, "request_body", e.RequestBody, &leaks)
	walk(policy, "response_body", e.ResponseBody, &leaks)
	return leaks
}

func walk(policy *redact.Policy, path string, v any, leaks *[]string) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			childPath := path + "." + k
			if policy.IsSensitive(k) {
				if s, ok := child.(string); !ok || s != policy.Mask() {
					*leaks = append(*leaks, childPath)
				}
				continue
			}
			walk(policy, childPath, child, leaks)
		}
	case []any:
		for i, child := range val {
			walk(policy, fmt.Sprintf("%s[%d]", path, i), child, leaks)
		}
	}
}
