package spigot

import (
	"fmt"
	"strings"
)

// csrg records come in three shapes: class lines (two columns), field lines
// (three columns) and method lines (four columns, with a descriptor before
// the mapped name). Package lines end their first column with a slash and
// are ignored here.
type classRecord struct {
	obf   string
	named string
}

type memberRecord struct {
	owner string
	obf   string
	desc  string // empty for fields
	named string
}

// parseClasses reads a csrg class mapping file; the leading comment block is
// returned as license text.
func parseClasses(content string) ([]classRecord, string, error) {
	var records []classRecord
	var license []string
	inHeader := true

	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if inHeader {
				license = append(license, strings.TrimPrefix(strings.TrimPrefix(trimmed, "#"), " "))
			}
			continue
		}
		inHeader = false
		columns := strings.Fields(trimmed)
		if len(columns) != 2 {
			return nil, "", fmt.Errorf("line %d: malformed class record %q", lineNo+1, trimmed)
		}
		if strings.HasSuffix(columns[0], "/") {
			// package mapping
			continue
		}
		records = append(records, classRecord{obf: columns[0], named: columns[1]})
	}
	return records, strings.Join(license, "\n"), nil
}

// parseMembers reads a csrg member mapping file.
func parseMembers(content string) ([]memberRecord, error) {
	var records []memberRecord
	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		columns := strings.Fields(trimmed)
		switch len(columns) {
		case 3:
			records = append(records, memberRecord{owner: columns[0], obf: columns[1], named: columns[2]})
		case 4:
			records = append(records, memberRecord{owner: columns[0], obf: columns[1], desc: columns[2], named: columns[3]})
		default:
			return nil, fmt.Errorf("line %d: malformed member record %q", lineNo+1, trimmed)
		}
	}
	return records, nil
}
