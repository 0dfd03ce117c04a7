package mojang

import (
	"fmt"
	"strings"
)

// classEntry is one parsed ProGuard class record. Names are internal
// (slash-separated); member types stay in Java source form until descriptor
// conversion.
type classEntry struct {
	named   string
	obf     string
	fields  []fieldEntry
	methods []methodEntry
}

type fieldEntry struct {
	typ   string
	named string
	obf   string
}

type methodEntry struct {
	ret   string
	named string
	args  []string
	obf   string
}

// parse reads a ProGuard mapping file. The leading comment block is returned
// as the license text.
func parse(content string) ([]classEntry, string, error) {
	var classes []classEntry
	var license []string
	inHeader := true

	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, "\r")
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

		if strings.HasPrefix(trimmed, "    ") {
			if len(classes) == 0 {
				return nil, "", fmt.Errorf("line %d: member record before any class", lineNo+1)
			}
			if err := parseMember(&classes[len(classes)-1], strings.TrimSpace(trimmed), lineNo+1); err != nil {
				return nil, "", err
			}
			continue
		}

		named, obf, ok := splitArrow(strings.TrimSuffix(trimmed, ":"))
		if !ok {
			return nil, "", fmt.Errorf("line %d: malformed class record %q", lineNo+1, trimmed)
		}
		classes = append(classes, classEntry{
			named: strings.ReplaceAll(named, ".", "/"),
			obf:   strings.ReplaceAll(obf, ".", "/"),
		})
	}
	return classes, strings.Join(license, "\n"), nil
}

func parseMember(class *classEntry, line string, lineNo int) error {
	left, obf, ok := splitArrow(line)
	if !ok {
		return fmt.Errorf("line %d: malformed member record %q", lineNo, line)
	}
	// methods may carry a lineFrom:lineTo: prefix on the return type
	space := strings.IndexByte(left, ' ')
	if space < 0 {
		return fmt.Errorf("line %d: malformed member record %q", lineNo, line)
	}
	typ, name := left[:space], left[space+1:]
	if colon := strings.LastIndexByte(typ, ':'); colon >= 0 {
		typ = typ[colon+1:]
	}

	open := strings.IndexByte(name, '(')
	if open < 0 {
		class.fields = append(class.fields, fieldEntry{typ: typ, named: name, obf: obf})
		return nil
	}
	if !strings.HasSuffix(name, ")") {
		return fmt.Errorf("line %d: malformed method record %q", lineNo, line)
	}
	var args []string
	if argList := name[open+1 : len(name)-1]; argList != "" {
		args = strings.Split(argList, ",")
	}
	class.methods = append(class.methods, methodEntry{
		ret:   typ,
		named: name[:open],
		args:  args,
		obf:   obf,
	})
	return nil
}

func splitArrow(s string) (string, string, bool) {
	idx := strings.Index(s, " -> ")
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(" -> "):], true
}

var primitiveDescriptors = map[string]string{
	"void":    "V",
	"boolean": "Z",
	"byte":    "B",
	"char":    "C",
	"short":   "S",
	"int":     "I",
	"long":    "J",
	"float":   "F",
	"double":  "D",
}

// typeDescriptor converts a Java source type name to a JVM descriptor. A
// non-nil classMap remaps class names (named to obfuscated) so the descriptor
// lands in the source namespace; a nil map keeps the named form.
func typeDescriptor(typ string, classMap map[string]string) string {
	var dims int
	for strings.HasSuffix(typ, "[]") {
		typ = typ[:len(typ)-2]
		dims++
	}
	desc, ok := primitiveDescriptors[typ]
	if !ok {
		internal := strings.ReplaceAll(typ, ".", "/")
		if obf, mapped := classMap[internal]; mapped {
			internal = obf
		}
		desc = "L" + internal + ";"
	}
	return strings.Repeat("[", dims) + desc
}

func methodDescriptor(args []string, ret string, classMap map[string]string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, arg := range args {
		sb.WriteString(typeDescriptor(strings.TrimSpace(arg), classMap))
	}
	sb.WriteByte(')')
	sb.WriteString(typeDescriptor(ret, classMap))
	return sb.String()
}
