package searge

import (
	"fmt"
	"strconv"
	"strings"
)

type classRecord struct {
	obf     string
	named   string
	fields  []fieldRecord
	methods []methodRecord
}

type fieldRecord struct {
	obf   string
	named string
	id    string
}

type methodRecord struct {
	obf    string
	desc   string
	named  string
	id     string
	params []paramRecord
}

type paramRecord struct {
	index int
	named string
}

// parseAny dispatches on the format actually found in the archive: tsrg2
// declares itself in a header line, the legacy srg format prefixes every
// record with its type, anything else is a headerless v1 tsrg.
func parseAny(content string) ([]classRecord, bool, error) {
	switch {
	case strings.HasPrefix(content, "tsrg2 "):
		return parseTSRG2(content)
	case strings.HasPrefix(content, "PK: ") || strings.HasPrefix(content, "CL: ") ||
		strings.HasPrefix(content, "FD: ") || strings.HasPrefix(content, "MD: "):
		classes, err := parseSRG(content)
		return classes, false, err
	default:
		classes, err := parseTSRG1(content)
		return classes, false, err
	}
}

// parseTSRG2 reads the modern format: a header declaring the namespace
// labels, classes at zero indentation, members at one tab, parameters and
// static markers at two tabs. A third member column carries the numeric id.
func parseTSRG2(content string) ([]classRecord, bool, error) {
	lines := strings.Split(content, "\n")
	header := strings.Fields(lines[0])
	if len(header) < 3 {
		return nil, false, fmt.Errorf("malformed tsrg2 header %q", lines[0])
	}
	hasIDs := len(header) > 3

	var classes []classRecord
	for lineNo, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth := 0
		for depth < len(line) && line[depth] == '\t' {
			depth++
		}
		columns := strings.Fields(line)
		switch depth {
		case 0:
			if len(columns) < 2 {
				return nil, false, fmt.Errorf("line %d: malformed class record %q", lineNo+2, line)
			}
			classes = append(classes, classRecord{obf: columns[0], named: columns[1]})
		case 1:
			if len(classes) == 0 {
				return nil, false, fmt.Errorf("line %d: member record before any class", lineNo+2)
			}
			class := &classes[len(classes)-1]
			switch {
			case len(columns) >= 3 && strings.HasPrefix(columns[1], "("):
				method := methodRecord{obf: columns[0], desc: columns[1], named: columns[2]}
				if len(columns) > 3 {
					method.id = columns[3]
				}
				class.methods = append(class.methods, method)
			case len(columns) >= 2:
				field := fieldRecord{obf: columns[0], named: columns[1]}
				if len(columns) > 2 {
					field.id = columns[2]
				}
				class.fields = append(class.fields, field)
			default:
				return nil, false, fmt.Errorf("line %d: malformed member record %q", lineNo+2, line)
			}
		default:
			if columns[0] == "static" {
				continue
			}
			if len(classes) == 0 || len(classes[len(classes)-1].methods) == 0 {
				return nil, false, fmt.Errorf("line %d: parameter record before any method", lineNo+2)
			}
			index, err := strconv.Atoi(columns[0])
			if err != nil || len(columns) < 2 {
				return nil, false, fmt.Errorf("line %d: malformed parameter record %q", lineNo+2, line)
			}
			class := &classes[len(classes)-1]
			method := &class.methods[len(class.methods)-1]
			method.params = append(method.params, paramRecord{index: index, named: columns[len(columns)-1]})
		}
	}
	return classes, hasIDs, nil
}

// parseTSRG1 reads the headerless v1 format: classes at zero indentation,
// members at one tab, methods carrying their descriptor in the middle column.
func parseTSRG1(content string) ([]classRecord, error) {
	var classes []classRecord
	for lineNo, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		columns := strings.Fields(line)
		if !strings.HasPrefix(line, "\t") {
			if len(columns) != 2 {
				return nil, fmt.Errorf("line %d: malformed class record %q", lineNo+1, line)
			}
			classes = append(classes, classRecord{obf: columns[0], named: columns[1]})
			continue
		}
		if len(classes) == 0 {
			return nil, fmt.Errorf("line %d: member record before any class", lineNo+1)
		}
		class := &classes[len(classes)-1]
		switch len(columns) {
		case 2:
			class.fields = append(class.fields, fieldRecord{obf: columns[0], named: columns[1]})
		case 3:
			class.methods = append(class.methods, methodRecord{obf: columns[0], desc: columns[1], named: columns[2]})
		default:
			return nil, fmt.Errorf("line %d: malformed member record %q", lineNo+1, line)
		}
	}
	return classes, nil
}

// parseSRG reads the legacy format with record-type prefixes and fully
// qualified member names.
func parseSRG(content string) ([]classRecord, error) {
	var classes []*classRecord
	index := map[string]*classRecord{}

	class := func(obf string) *classRecord {
		if record, ok := index[obf]; ok {
			return record
		}
		record := &classRecord{obf: obf, named: obf}
		classes = append(classes, record)
		index[obf] = record
		return record
	}

	for lineNo, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		columns := strings.Fields(line)
		switch columns[0] {
		case "PK:":
			// package records carry no class information
		case "CL:":
			if len(columns) != 3 {
				return nil, fmt.Errorf("line %d: malformed CL record %q", lineNo+1, line)
			}
			class(columns[1]).named = columns[2]
		case "FD:":
			if len(columns) != 3 {
				return nil, fmt.Errorf("line %d: malformed FD record %q", lineNo+1, line)
			}
			owner, obf := splitMember(columns[1])
			_, named := splitMember(columns[2])
			record := class(owner)
			record.fields = append(record.fields, fieldRecord{obf: obf, named: named})
		case "MD:":
			if len(columns) != 5 {
				return nil, fmt.Errorf("line %d: malformed MD record %q", lineNo+1, line)
			}
			owner, obf := splitMember(columns[1])
			_, named := splitMember(columns[3])
			record := class(owner)
			record.methods = append(record.methods, methodRecord{obf: obf, desc: columns[2], named: named})
		default:
			return nil, fmt.Errorf("line %d: unknown srg record %q", lineNo+1, line)
		}
	}

	result := make([]classRecord, len(classes))
	for i, record := range classes {
		result[i] = *record
	}
	return result, nil
}

func splitMember(qualified string) (owner, name string) {
	idx := strings.LastIndexByte(qualified, '/')
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}
