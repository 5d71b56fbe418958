package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/qepting91/redditboard/internal/domain"
)

// inputError is a rejected user input. It matches domain.ErrInvalidInput
// without carrying that error's text in its message.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Is(target error) bool { return target == domain.ErrInvalidInput }

var (
	ErrInvalidFormat error = &inputError{msg: "invalid format"}
	ErrInvalidName   error = &inputError{msg: "invalid subreddit name"}
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var subURLRegex = regexp.MustCompile(`reddit\.com/r/([^/]+)`)

// Normalize turns a raw name, an r/name form or a reddit URL into a subreddit identifier.
func Normalize(raw string) (string, error) {
	in := strings.ToLower(strings.TrimSpace(raw))

	var name string
	switch {
	case strings.HasPrefix(in, "http"):
		m := subURLRegex.FindStringSubmatch(in)
		if m == nil {
			return "", ErrInvalidFormat
		}
		name = m[1]
	case strings.HasPrefix(in, "r/"):
		name = strings.TrimPrefix(in, "r/")
	default:
		name = in
	}

	if !subNameRegex.MatchString(name) {
		return "", ErrInvalidName
	}
	return name, nil
}

// LoadSeeds reads the initial column layout from a CSV file.
// The first row is a header; invalid rows are skipped.
func LoadSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSeeds(f)
}

func readSeeds(in io.Reader) ([]string, error) {
	// Wrap in BOM stripper
	r := csv.NewReader(stripBOM(in))
	r.FieldsPerRecord = -1

	var names []string
	seen := make(map[string]bool)
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return names, fmt.Errorf("read seeds: %w", err)
		}
		line++
		if line == 1 || len(record) == 0 {
			continue
		}

		// Validation (Fail-Soft)
		name, err := Normalize(record[0])
		if err != nil || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
