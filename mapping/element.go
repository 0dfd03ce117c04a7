package mapping

import "fmt"

// element carries the per-namespace destination names shared by every mapping
// element kind. Index 0 of dst mirrors the source name and is never written.
type element struct {
	src      string
	dst      []string
	metadata map[string]string
}

func (e *element) name(tree *Tree, nsID int) (string, bool) {
	if nsID == 0 {
		return e.src, true
	}
	if nsID < 0 || nsID >= len(e.dst) || e.dst[nsID] == "" {
		return "", false
	}
	if name, ok := tree.NamespaceName(nsID); !ok || name == "" {
		return "", false
	}
	return e.dst[nsID], true
}

func (e *element) setName(nsID int, name string) error {
	if nsID <= 0 {
		return fmt.Errorf("cannot assign destination name to namespace %d", nsID)
	}
	for len(e.dst) <= nsID {
		e.dst = append(e.dst, "")
	}
	e.dst[nsID] = name
	return nil
}

func (e *element) clearNamespace(nsID int) {
	if nsID > 0 && nsID < len(e.dst) {
		e.dst[nsID] = ""
	}
}

func (e *element) setMetadata(key, value string) {
	if e.metadata == nil {
		e.metadata = make(map[string]string)
	}
	e.metadata[key] = value
}

func (e *element) metadataValue(key string) (string, bool) {
	value, ok := e.metadata[key]
	return value, ok
}

// Class is one class mapping: an invariant source name plus per-namespace
// destination names, owning field and method mappings.
type Class struct {
	element
	tree *Tree

	fields      []*Field
	fieldIndex  map[string]*Field
	methods     []*Method
	methodIndex map[string]*Method
}

// Source returns the invariant source name of the class.
func (c *Class) Source() string { return c.src }

// Tree returns the owning mapping tree.
func (c *Class) Tree() *Tree { return c.tree }

// Name returns the class name under the given namespace id. Namespace id 0
// yields the source name.
func (c *Class) Name(nsID int) (string, bool) {
	return c.name(c.tree, nsID)
}

// NameByNS returns the class name under the given namespace name.
func (c *Class) NameByNS(ns string) (string, bool) {
	nsID, ok := c.tree.Namespace(ns)
	if !ok {
		return "", false
	}
	return c.Name(nsID)
}

// SetName assigns the class destination name for a namespace, replacing a
// prior assignment in the name index.
func (c *Class) SetName(nsID int, name string) error {
	if c.tree.frozen {
		return errFrozen
	}
	if prior, ok := c.Name(nsID); ok && prior != name {
		c.tree.unindexDstName(nsID, prior, c)
	}
	if err := c.setName(nsID, name); err != nil {
		return err
	}
	c.tree.indexDstName(nsID, name, c)
	return nil
}

// SetMetadata attaches an element-scope metadata value.
func (c *Class) SetMetadata(key, value string) error {
	if c.tree.frozen {
		return errFrozen
	}
	c.setMetadata(key, value)
	return nil
}

// Metadata returns an element-scope metadata value.
func (c *Class) Metadata(key string) (string, bool) {
	return c.metadataValue(key)
}

// Fields enumerates the field mappings of the class in visit order.
func (c *Class) Fields() []*Field { return c.fields }

// Methods enumerates the method mappings of the class in visit order.
func (c *Class) Methods() []*Method { return c.methods }

// Field returns the field mapping with the given source name.
func (c *Class) Field(src string) (*Field, bool) {
	field, ok := c.fieldIndex[src]
	return field, ok
}

// Method returns the method mapping with the given source name and source
// descriptor.
func (c *Class) Method(src, desc string) (*Method, bool) {
	method, ok := c.methodIndex[src+desc]
	return method, ok
}

// AddField returns the field mapping with the given source name, creating it
// when absent.
func (c *Class) AddField(src, desc string) (*Field, error) {
	return c.addField(src, desc)
}

// AddMethod returns the method mapping with the given source name and
// descriptor, creating it when absent.
func (c *Class) AddMethod(src, desc string) (*Method, error) {
	return c.addMethod(src, desc)
}

func (c *Class) addField(src, desc string) (*Field, error) {
	if c.tree.frozen {
		return nil, errFrozen
	}
	if c.fieldIndex == nil {
		c.fieldIndex = make(map[string]*Field)
	}
	if field, ok := c.fieldIndex[src]; ok {
		if field.srcDesc == "" {
			field.srcDesc = desc
		}
		return field, nil
	}
	field := &Field{member: member{element: element{src: src}, srcDesc: desc, owner: c}}
	c.fields = append(c.fields, field)
	c.fieldIndex[src] = field
	return field, nil
}

func (c *Class) addMethod(src, desc string) (*Method, error) {
	if c.tree.frozen {
		return nil, errFrozen
	}
	if c.methodIndex == nil {
		c.methodIndex = make(map[string]*Method)
	}
	if method, ok := c.methodIndex[src+desc]; ok {
		return method, nil
	}
	method := &Method{member: member{element: element{src: src}, srcDesc: desc, owner: c}}
	c.methods = append(c.methods, method)
	c.methodIndex[src+desc] = method
	return method, nil
}

// RemoveField detaches a field mapping from the class.
func (c *Class) RemoveField(field *Field) error {
	if c.tree.frozen {
		return errFrozen
	}
	c.removeField(field)
	return nil
}

// RemoveMethod detaches a method mapping from the class.
func (c *Class) RemoveMethod(method *Method) error {
	if c.tree.frozen {
		return errFrozen
	}
	c.removeMethod(method)
	return nil
}

func (c *Class) removeField(field *Field) {
	delete(c.fieldIndex, field.src)
	for i, candidate := range c.fields {
		if candidate == field {
			c.fields = append(c.fields[:i], c.fields[i+1:]...)
			return
		}
	}
}

func (c *Class) removeMethod(method *Method) {
	delete(c.methodIndex, method.src+method.srcDesc)
	for i, candidate := range c.methods {
		if candidate == method {
			c.methods = append(c.methods[:i], c.methods[i+1:]...)
			return
		}
	}
}

func (c *Class) clearNamespace(nsID int) {
	c.element.clearNamespace(nsID)
	for _, field := range c.fields {
		field.clearNamespace(nsID)
	}
	for _, method := range c.methods {
		method.clearNamespace(nsID)
		for _, param := range method.params {
			param.clearNamespace(nsID)
		}
	}
}

// member is the shared shape of field and method mappings: a source
// descriptor plus per-namespace destination names and descriptors.
type member struct {
	element
	owner   *Class
	srcDesc string
	dstDesc []string
}

// Owner returns the owning class mapping.
func (m *member) Owner() *Class { return m.owner }

// Source returns the invariant source name of the member.
func (m *member) Source() string { return m.src }

// SourceDescriptor returns the descriptor under the source namespace.
func (m *member) SourceDescriptor() string { return m.srcDesc }

// Name returns the member name under the given namespace id.
func (m *member) Name(nsID int) (string, bool) {
	return m.name(m.owner.tree, nsID)
}

// NameByNS returns the member name under the given namespace name.
func (m *member) NameByNS(ns string) (string, bool) {
	nsID, ok := m.owner.tree.Namespace(ns)
	if !ok {
		return "", false
	}
	return m.Name(nsID)
}

// Descriptor returns the member descriptor under the given namespace id,
// falling back to the source descriptor when the namespace has none.
func (m *member) Descriptor(nsID int) string {
	if nsID > 0 && nsID < len(m.dstDesc) && m.dstDesc[nsID] != "" {
		return m.dstDesc[nsID]
	}
	return m.srcDesc
}

// DescriptorByNS returns the member descriptor under the given namespace
// name, falling back to the source descriptor.
func (m *member) DescriptorByNS(ns string) string {
	nsID, ok := m.owner.tree.Namespace(ns)
	if !ok {
		return m.srcDesc
	}
	return m.Descriptor(nsID)
}

// SetName assigns the member destination name for a namespace.
func (m *member) SetName(nsID int, name string) error {
	if m.owner.tree.frozen {
		return errFrozen
	}
	return m.setName(nsID, name)
}

// SetDescriptor assigns the member destination descriptor for a namespace.
func (m *member) SetDescriptor(nsID int, desc string) error {
	if m.owner.tree.frozen {
		return errFrozen
	}
	if nsID <= 0 {
		return fmt.Errorf("cannot assign destination descriptor to namespace %d", nsID)
	}
	for len(m.dstDesc) <= nsID {
		m.dstDesc = append(m.dstDesc, "")
	}
	m.dstDesc[nsID] = desc
	return nil
}

// SetMetadata attaches an element-scope metadata value.
func (m *member) SetMetadata(key, value string) error {
	if m.owner.tree.frozen {
		return errFrozen
	}
	m.setMetadata(key, value)
	return nil
}

// Metadata returns an element-scope metadata value.
func (m *member) Metadata(key string) (string, bool) {
	return m.metadataValue(key)
}

func (m *member) clearNamespace(nsID int) {
	m.element.clearNamespace(nsID)
	if nsID > 0 && nsID < len(m.dstDesc) {
		m.dstDesc[nsID] = ""
	}
}

// Field is one field mapping.
type Field struct {
	member
}

// Method is one method mapping, additionally holding parameter sub-elements
// keyed by index.
type Method struct {
	member
	params []*Parameter
}

// Parameters enumerates the parameter mappings of the method.
func (m *Method) Parameters() []*Parameter { return m.params }

// Parameter returns the parameter mapping at the given index.
func (m *Method) Parameter(index int) (*Parameter, bool) {
	for _, param := range m.params {
		if param.index == index {
			return param, true
		}
	}
	return nil, false
}

// AddParameter returns the parameter mapping at the given index, creating it
// when absent.
func (m *Method) AddParameter(index int, src string) (*Parameter, error) {
	return m.addParameter(index, src)
}

func (m *Method) addParameter(index int, src string) (*Parameter, error) {
	if m.owner.tree.frozen {
		return nil, errFrozen
	}
	if param, ok := m.Parameter(index); ok {
		return param, nil
	}
	param := &Parameter{element: element{src: src}, method: m, index: index}
	m.params = append(m.params, param)
	return param, nil
}

// Parameter is one method parameter mapping, keyed by its index within the
// method descriptor.
type Parameter struct {
	element
	method *Method
	index  int
}

// Index returns the parameter position within the method descriptor.
func (p *Parameter) Index() int { return p.index }

// Method returns the owning method mapping.
func (p *Parameter) Method() *Method { return p.method }

// Source returns the source-namespace parameter name, often empty.
func (p *Parameter) Source() string { return p.src }

// Name returns the parameter name under the given namespace id.
func (p *Parameter) Name(nsID int) (string, bool) {
	return p.name(p.method.owner.tree, nsID)
}

// SetName assigns the parameter destination name for a namespace.
func (p *Parameter) SetName(nsID int, name string) error {
	if p.method.owner.tree.frozen {
		return errFrozen
	}
	return p.setName(nsID, name)
}
