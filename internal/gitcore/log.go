package gitcore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rybkr/gitlane/internal/layout"
)

// DefaultLogLimit caps how many commits Log asks git for.
const DefaultLogLimit = 50

const (
	fieldSep  = '\x1f'
	recordSep = '\x1e'

	// hash, parents, author name, author email, author time, subject, decorations
	logFormat = "--pretty=format:%H%x1f%P%x1f%an%x1f%ae%x1f%at%x1f%s%x1f%D%x1e"
	minFields = 6
)

// LogOptions selects which slice of history Log returns.
type LogOptions struct {
	Limit int
	// All includes every ref rather than just HEAD.
	All bool
}

// DefaultLogOptions mirrors what the graph view asks for.
func DefaultLogOptions() LogOptions {
	return LogOptions{Limit: DefaultLogLimit, All: true}
}

func (o LogOptions) args() []string {
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	args := []string{"log", "-n" + strconv.Itoa(limit), "--date-order", logFormat}
	if o.All {
		args = append(args, "--all")
	}
	return args
}

// Log runs git log in the working directory and parses the result. A
// repository without commits yields an empty slice.
func (r *Repository) Log(ctx context.Context, opts LogOptions) ([]layout.Commit, error) {
	cmd := exec.CommandContext(ctx, r.gitBin, opts.args()...)
	cmd.Dir = r.workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && isEmptyHistory(msg) {
			return []layout.Commit{}, nil
		}
		if msg != "" {
			return nil, fmt.Errorf("git log failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	return ParseLog(bytes.NewReader(out))
}

func isEmptyHistory(stderr string) bool {
	return strings.Contains(stderr, "does not have any commits") ||
		strings.Contains(stderr, "bad default revision")
}

// ParseLog parses output produced with the format used by Log.
func ParseLog(r io.Reader) ([]layout.Commit, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	scanner.Split(splitRecords)

	commits := make([]layout.Commit, 0)
	n := 0
	for scanner.Scan() {
		n++
		record := strings.TrimLeft(scanner.Text(), "\r\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		c, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		commits = append(commits, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading git log output: %w", err)
	}
	return commits, nil
}

func splitRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, recordSep); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func parseRecord(record string) (layout.Commit, error) {
	fields := strings.Split(record, string(fieldSep))
	if len(fields) < minFields {
		return layout.Commit{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(fields))
	}

	hash := strings.TrimSpace(fields[0])
	if hash == "" {
		return layout.Commit{}, fmt.Errorf("missing commit hash")
	}

	timestamp, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return layout.Commit{}, fmt.Errorf("commit %s: invalid timestamp %q: %w", layout.Short(hash), fields[4], err)
	}

	parents := strings.Fields(fields[1])
	if parents == nil {
		parents = []string{}
	}

	c := layout.NewCommit(hash, parents, fields[2], timestamp, fields[5])
	c.AuthorEmail = fields[3]

	refs := ""
	if len(fields) > minFields {
		refs = fields[6]
	}
	c.Branches, c.Tags = parseDecorations(refs)
	return c, nil
}

// parseDecorations splits a %D decoration list into branch and tag names.
// "HEAD -> main" counts as branch main; bare HEAD and remote HEAD aliases are
// dropped.
func parseDecorations(refs string) (branches, tags []string) {
	branches, tags = []string{}, []string{}
	if strings.TrimSpace(refs) == "" {
		return branches, tags
	}

	for _, ref := range strings.Split(refs, ", ") {
		ref = strings.TrimSpace(ref)
		switch {
		case ref == "" || ref == "HEAD":
		case strings.HasPrefix(ref, "tag: "):
			tags = append(tags, strings.TrimPrefix(ref, "tag: "))
		case strings.HasPrefix(ref, "HEAD -> "):
			branches = append(branches, strings.TrimPrefix(ref, "HEAD -> "))
		// origin/HEAD only mirrors another remote ref; as a branch it would
		// add a lane duplicating that ref.
		case strings.HasSuffix(ref, "/HEAD"):
		default:
			branches = append(branches, ref)
		}
	}
	return branches, tags
}
