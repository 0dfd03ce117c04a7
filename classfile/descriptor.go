package classfile

import (
	"fmt"
	"strings"
)

// ParameterTypes splits a method descriptor into its parameter type
// descriptors, e.g. "(I[Ljava/lang/String;)V" yields ["I", "[Ljava/lang/String;"].
func ParameterTypes(desc string) ([]string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, fmt.Errorf("not a method descriptor: %q", desc)
	}
	var types []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		start := i
		for i < len(desc) && desc[i] == '[' {
			i++
		}
		if i >= len(desc) {
			return nil, fmt.Errorf("truncated method descriptor: %q", desc)
		}
		switch desc[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			i++
		case 'L':
			end := strings.IndexByte(desc[i:], ';')
			if end < 0 {
				return nil, fmt.Errorf("unterminated object type in %q", desc)
			}
			i += end + 1
		default:
			return nil, fmt.Errorf("unknown type tag %q in %q", desc[i], desc)
		}
		types = append(types, desc[start:i])
	}
	if i >= len(desc) || desc[i] != ')' {
		return nil, fmt.Errorf("unterminated method descriptor: %q", desc)
	}
	return types, nil
}

// ReturnType returns the return type descriptor of a method descriptor.
func ReturnType(desc string) (string, error) {
	end := strings.IndexByte(desc, ')')
	if !strings.HasPrefix(desc, "(") || end < 0 || end+1 >= len(desc) {
		return "", fmt.Errorf("not a method descriptor: %q", desc)
	}
	return desc[end+1:], nil
}

// StripReturn drops the return type from a method descriptor, leaving the
// parenthesized parameter list. Used for reflective-lookup style matching
// where overloads are distinguished by parameters alone.
func StripReturn(desc string) string {
	if end := strings.IndexByte(desc, ')'); end >= 0 {
		return desc[:end+1]
	}
	return desc
}
