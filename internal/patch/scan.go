package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Header lines git may emit between "diff --git" and the first hunk.
var extendedHeaders = []string{
	"old mode ",
	"new mode ",
	"deleted file mode ",
	"new file mode ",
	"copy from ",
	"copy to ",
	"rename from ",
	"rename to ",
	"similarity index ",
	"dissimilarity index ",
	"index ",
	"Binary files ",
}

type scanState int

const (
	scanStart  scanState = iota // before the first file section
	scanHeader                  // in a file section, outside any hunk
	scanHunk                    // inside a hunk with lines still owed
	scanBinary                  // inside a GIT binary patch payload
)

// scan walks diffText line by line and checks that every line belongs to a
// file section and that every hunk carries exactly the line counts its header
// announces. The lenient parser underneath would otherwise drop what it does
// not understand.
func scan(diffText string) error {
	lines := strings.Split(strings.TrimRight(diffText, "\n"), "\n")

	state := scanStart
	var oldLeft, newLeft int
	for i, line := range lines {
		n := i + 1

		if state == scanHunk {
			switch {
			case line == "" || line[0] == ' ':
				oldLeft--
				newLeft--
			case line[0] == '-':
				oldLeft--
			case line[0] == '+':
				newLeft--
			case line[0] == '\\':
				continue
			default:
				return fmt.Errorf("line %d: hunk ends early (%d old, %d new lines missing)", n, oldLeft, newLeft)
			}
			if oldLeft < 0 || newLeft < 0 {
				return fmt.Errorf("line %d: hunk is longer than its header", n)
			}
			if oldLeft == 0 && newLeft == 0 {
				state = scanHeader
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "diff --cc "),
			strings.HasPrefix(line, "diff --combined "),
			strings.HasPrefix(line, "@@@"):
			return fmt.Errorf("line %d: combined diffs are not supported", n)
		case strings.HasPrefix(line, "diff --git "):
			state = scanHeader
		case state == scanBinary:
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			state = scanHeader
		case state == scanStart:
			return fmt.Errorf("line %d: expected a file header, got %s", n, excerpt(line))
		case strings.HasPrefix(line, "@@ "):
			o, nw, err := hunkCounts(line)
			if err != nil {
				return fmt.Errorf("line %d: %w", n, err)
			}
			oldLeft, newLeft = o, nw
			if oldLeft > 0 || newLeft > 0 {
				state = scanHunk
			}
		case strings.HasPrefix(line, "GIT binary patch"):
			state = scanBinary
		case strings.HasPrefix(line, `\`), hasExtendedHeader(line):
		default:
			return fmt.Errorf("line %d: unexpected %s", n, excerpt(line))
		}
	}

	if state == scanHunk {
		return fmt.Errorf("truncated hunk (%d old, %d new lines missing)", oldLeft, newLeft)
	}
	return nil
}

// hunkCounts returns the old and new line counts of a hunk header. An omitted
// count means one line.
func hunkCounts(header string) (int, int, error) {
	m := hunkHeaderRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed hunk header %s", excerpt(header))
	}
	count := func(s string) (int, error) {
		if s == "" {
			return 1, nil
		}
		return strconv.Atoi(s)
	}
	o, err := count(m[2])
	if err != nil {
		return 0, 0, err
	}
	nw, err := count(m[4])
	if err != nil {
		return 0, 0, err
	}
	return o, nw, nil
}

func hasExtendedHeader(line string) bool {
	for _, prefix := range extendedHeaders {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func excerpt(line string) string {
	const limit = 40
	if len(line) > limit {
		line = line[:limit] + "..."
	}
	return strconv.Quote(line)
}
