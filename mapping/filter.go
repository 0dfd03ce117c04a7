package mapping

// NamespaceFilter is a forwarding visitor that drops every event tagged with
// one destination namespace, leaving all other namespaces untouched.
type NamespaceFilter struct {
	next Visitor
	drop string

	// remap translates producer dst indices onto the filtered sequence;
	// -1 marks the dropped column.
	remap []int
}

// NewNamespaceFilter wraps next, removing the named destination namespace
// from the replayed sequence.
func NewNamespaceFilter(next Visitor, drop string) *NamespaceFilter {
	return &NamespaceFilter{next: next, drop: drop}
}

func (f *NamespaceFilter) BeginHeader() error { return f.next.BeginHeader() }

func (f *NamespaceFilter) Namespaces(src string, dst []string) error {
	f.remap = make([]int, len(dst))
	kept := make([]string, 0, len(dst))
	for i, name := range dst {
		if name == f.drop {
			f.remap[i] = -1
			continue
		}
		f.remap[i] = len(kept)
		kept = append(kept, name)
	}
	return f.next.Namespaces(src, kept)
}

func (f *NamespaceFilter) BeginContent() error { return f.next.BeginContent() }

func (f *NamespaceFilter) BeginClass(src string) (bool, error) { return f.next.BeginClass(src) }

func (f *NamespaceFilter) DstName(ns int, name string) error {
	if ns < 0 || ns >= len(f.remap) {
		// forwarded unchanged so the receiving visitor reports the
		// undeclared namespace
		return f.next.DstName(ns, name)
	}
	if f.remap[ns] < 0 {
		return nil
	}
	return f.next.DstName(f.remap[ns], name)
}

func (f *NamespaceFilter) DstDescriptor(ns int, desc string) error {
	if ns < 0 || ns >= len(f.remap) {
		return f.next.DstDescriptor(ns, desc)
	}
	if f.remap[ns] < 0 {
		return nil
	}
	return f.next.DstDescriptor(f.remap[ns], desc)
}

func (f *NamespaceFilter) BeginField(src, desc string) (bool, error) {
	return f.next.BeginField(src, desc)
}

func (f *NamespaceFilter) BeginMethod(src, desc string) (bool, error) {
	return f.next.BeginMethod(src, desc)
}

func (f *NamespaceFilter) BeginParameter(index int, src string) (bool, error) {
	return f.next.BeginParameter(index, src)
}

func (f *NamespaceFilter) Metadata(key, value string) error { return f.next.Metadata(key, value) }

func (f *NamespaceFilter) End() (bool, error) { return f.next.End() }
