package mapping

import (
	"io"
	"sort"
	"strconv"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Fingerprint computes a deterministic digest of a tree's visible content:
// namespaces, names, descriptors and metadata, independent of visit order and
// namespace registration order. Two trees with identical content yield the
// same fingerprint, which makes warm-cache idempotence cheap to verify.
func Fingerprint(t *Tree) (uint64, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return 0, err
	}

	namespaces := t.Namespaces()
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		writeRecord(h, "ns", ns)
	}
	for _, key := range t.MetadataKeys() {
		value, _ := t.Metadata(key)
		writeRecord(h, "meta", key, value)
	}

	classes := append([]*Class(nil), t.classes...)
	sort.Slice(classes, func(i, j int) bool { return classes[i].src < classes[j].src })
	for _, class := range classes {
		writeRecord(h, "class", class.src)
		writeNames(h, t, namespaces, func(ns string) (string, bool) { return class.NameByNS(ns) })

		fields := append([]*Field(nil), class.fields...)
		sort.Slice(fields, func(i, j int) bool { return fields[i].src < fields[j].src })
		for _, field := range fields {
			writeRecord(h, "field", field.src, field.srcDesc)
			writeNames(h, t, namespaces, func(ns string) (string, bool) { return field.NameByNS(ns) })
		}

		methods := append([]*Method(nil), class.methods...)
		sort.Slice(methods, func(i, j int) bool {
			if methods[i].src != methods[j].src {
				return methods[i].src < methods[j].src
			}
			return methods[i].srcDesc < methods[j].srcDesc
		})
		for _, method := range methods {
			writeRecord(h, "method", method.src, method.srcDesc)
			writeNames(h, t, namespaces, func(ns string) (string, bool) { return method.NameByNS(ns) })
			for _, param := range method.params {
				writeRecord(h, "param", strconv.Itoa(param.index), param.src)
			}
		}
	}
	return h.Sum64(), nil
}

func writeNames(w io.Writer, t *Tree, namespaces []string, name func(ns string) (string, bool)) {
	for _, ns := range namespaces {
		if value, ok := name(ns); ok {
			writeRecord(w, "dst", ns, value)
		}
	}
}

func writeRecord(w io.Writer, parts ...string) {
	for _, part := range parts {
		_, _ = io.WriteString(w, part)
		_, _ = w.Write([]byte{0})
	}
	_, _ = w.Write([]byte{'\n'})
}
