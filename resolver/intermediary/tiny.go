package intermediary

import (
	"fmt"
	"strings"
)

type classRecord struct {
	obf     string
	named   string
	fields  []memberRecord
	methods []memberRecord
}

type memberRecord struct {
	obf   string
	desc  string
	named string
}

// parseTiny reads the v1 tiny format: a tab-separated header declaring two
// namespace labels followed by CLASS, FIELD and METHOD records. Member
// records carry the owner class under its obfuscated name and the member
// descriptor in obfuscated terms.
func parseTiny(content string) ([]classRecord, error) {
	lines := strings.Split(content, "\n")
	header := strings.Split(strings.TrimRight(lines[0], "\r"), "\t")
	if len(header) != 3 || header[0] != "v1" {
		return nil, fmt.Errorf("malformed tiny header %q", lines[0])
	}

	var classes []*classRecord
	index := map[string]*classRecord{}
	class := func(obf string) *classRecord {
		if record, ok := index[obf]; ok {
			return record
		}
		record := &classRecord{obf: obf}
		classes = append(classes, record)
		index[obf] = record
		return record
	}

	for lineNo, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		columns := strings.Split(line, "\t")
		switch columns[0] {
		case "CLASS":
			if len(columns) != 3 {
				return nil, fmt.Errorf("line %d: malformed CLASS record %q", lineNo+2, line)
			}
			class(columns[1]).named = columns[2]
		case "FIELD":
			if len(columns) != 5 {
				return nil, fmt.Errorf("line %d: malformed FIELD record %q", lineNo+2, line)
			}
			record := class(columns[1])
			record.fields = append(record.fields, memberRecord{desc: columns[2], obf: columns[3], named: columns[4]})
		case "METHOD":
			if len(columns) != 5 {
				return nil, fmt.Errorf("line %d: malformed METHOD record %q", lineNo+2, line)
			}
			record := class(columns[1])
			record.methods = append(record.methods, memberRecord{desc: columns[2], obf: columns[3], named: columns[4]})
		default:
			return nil, fmt.Errorf("line %d: unknown tiny record %q", lineNo+2, line)
		}
	}

	result := make([]classRecord, len(classes))
	for i, record := range classes {
		result[i] = *record
	}
	return result, nil
}
