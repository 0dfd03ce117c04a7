package mapping

import "fmt"

// Visitor receives a mapping file replayed as an ordered event sequence:
// begin header, declare namespaces, begin content, then repeated class visits
// with nested member visits, closed by End. Destination namespaces are
// addressed by their index within the dst slice passed to Namespaces.
//
// BeginClass, BeginField, BeginMethod and BeginParameter return false to ask
// the producer to skip the element content. End returns true to request
// another full pass, for formats that need to re-walk content once the
// namespaces are known.
type Visitor interface {
	BeginHeader() error
	Namespaces(src string, dst []string) error
	BeginContent() error
	BeginClass(src string) (bool, error)
	DstName(ns int, name string) error
	DstDescriptor(ns int, desc string) error
	BeginField(src, desc string) (bool, error)
	BeginMethod(src, desc string) (bool, error)
	BeginParameter(index int, src string) (bool, error)
	Metadata(key, value string) error
	End() (bool, error)
}

// Replay drives a producer against a visitor, re-emitting the whole sequence
// for as long as End requests another pass.
func Replay(v Visitor, emit func(v Visitor) error) error {
	for {
		if err := emit(v); err != nil {
			return err
		}
		again, err := v.End()
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

type visitState uint8

const (
	stateStart visitState = iota
	stateHeader
	stateNamespaces
	stateContent
	stateClass
	stateField
	stateMethod
	stateParameter
)

var stateNames = map[visitState]string{
	stateStart:      "start",
	stateHeader:     "header",
	stateNamespaces: "namespaces",
	stateContent:    "content",
	stateClass:      "class",
	stateField:      "field",
	stateMethod:     "method",
	stateParameter:  "parameter",
}

// TreeVisitor builds a Tree from the visitor event sequence, validating event
// order with an explicit state machine. Multiple resolvers may share one
// TreeVisitor; each replays its own header-to-end sequence and its namespaces
// are merged into the shared tree registry.
type TreeVisitor struct {
	tree  *Tree
	state visitState

	// nsMap translates the producer-local dst index of the current pass onto
	// tree namespace ids.
	nsMap []int

	class  *Class
	field  *Field
	method *Method
	param  *Parameter
}

// NewTreeVisitor creates a visitor populating the given tree.
func NewTreeVisitor(tree *Tree) *TreeVisitor {
	return &TreeVisitor{tree: tree}
}

// Tree returns the tree under construction.
func (v *TreeVisitor) Tree() *Tree { return v.tree }

func (v *TreeVisitor) badState(event string) error {
	return fmt.Errorf("mapping visit: %v not allowed in state %v", event, stateNames[v.state])
}

func (v *TreeVisitor) BeginHeader() error {
	if v.state != stateStart {
		return v.badState("BeginHeader")
	}
	v.state = stateHeader
	v.nsMap = nil
	return nil
}

// Namespaces declares the namespace columns of the producing format. The src
// label is anchored onto the tree source namespace whatever the format calls
// it; dst labels are registered in the shared tree registry.
func (v *TreeVisitor) Namespaces(src string, dst []string) error {
	if v.state != stateHeader {
		return v.badState("Namespaces")
	}
	v.nsMap = make([]int, len(dst))
	for i, name := range dst {
		v.nsMap[i] = v.tree.NamespaceID(name)
	}
	v.state = stateNamespaces
	return nil
}

func (v *TreeVisitor) BeginContent() error {
	if v.state != stateNamespaces {
		return v.badState("BeginContent")
	}
	v.state = stateContent
	return nil
}

func (v *TreeVisitor) BeginClass(src string) (bool, error) {
	if v.state < stateContent {
		return false, v.badState("BeginClass")
	}
	class, err := v.tree.addClass(src)
	if err != nil {
		return false, err
	}
	v.class, v.field, v.method, v.param = class, nil, nil, nil
	v.state = stateClass
	return true, nil
}

func (v *TreeVisitor) BeginField(src, desc string) (bool, error) {
	if v.state < stateClass {
		return false, v.badState("BeginField")
	}
	field, err := v.class.addField(src, desc)
	if err != nil {
		return false, err
	}
	v.field, v.method, v.param = field, nil, nil
	v.state = stateField
	return true, nil
}

func (v *TreeVisitor) BeginMethod(src, desc string) (bool, error) {
	if v.state < stateClass {
		return false, v.badState("BeginMethod")
	}
	method, err := v.class.addMethod(src, desc)
	if err != nil {
		return false, err
	}
	v.method, v.field, v.param = method, nil, nil
	v.state = stateMethod
	return true, nil
}

func (v *TreeVisitor) BeginParameter(index int, src string) (bool, error) {
	if v.state != stateMethod && v.state != stateParameter {
		return false, v.badState("BeginParameter")
	}
	param, err := v.method.addParameter(index, src)
	if err != nil {
		return false, err
	}
	v.param = param
	v.state = stateParameter
	return true, nil
}

func (v *TreeVisitor) mapNamespace(ns int) (int, error) {
	if ns < 0 || ns >= len(v.nsMap) {
		return 0, fmt.Errorf("mapping visit: destination namespace %d not declared", ns)
	}
	return v.nsMap[ns], nil
}

// DstName assigns a destination name to the innermost open element.
func (v *TreeVisitor) DstName(ns int, name string) error {
	nsID, err := v.mapNamespace(ns)
	if err != nil {
		return err
	}
	switch v.state {
	case stateClass:
		return v.class.SetName(nsID, name)
	case stateField:
		return v.field.SetName(nsID, name)
	case stateMethod:
		return v.method.SetName(nsID, name)
	case stateParameter:
		return v.param.SetName(nsID, name)
	}
	return v.badState("DstName")
}

// DstDescriptor assigns a destination descriptor to the open member.
func (v *TreeVisitor) DstDescriptor(ns int, desc string) error {
	nsID, err := v.mapNamespace(ns)
	if err != nil {
		return err
	}
	switch v.state {
	case stateField:
		return v.field.SetDescriptor(nsID, desc)
	case stateMethod:
		return v.method.SetDescriptor(nsID, desc)
	}
	return v.badState("DstDescriptor")
}

// Metadata attaches a metadata value: tree scope before content, element
// scope while an element is open.
func (v *TreeVisitor) Metadata(key, value string) error {
	switch v.state {
	case stateHeader, stateNamespaces, stateContent:
		return v.tree.SetMetadata(key, value)
	case stateClass:
		return v.class.SetMetadata(key, value)
	case stateField:
		return v.field.SetMetadata(key, value)
	case stateMethod, stateParameter:
		return v.method.SetMetadata(key, value)
	}
	return v.badState("Metadata")
}

// End closes the current pass. The tree visitor never requests a replay; the
// sequence may begin again for the next producer.
func (v *TreeVisitor) End() (bool, error) {
	if v.state < stateContent {
		return false, v.badState("End")
	}
	v.state = stateStart
	v.class, v.field, v.method, v.param = nil, nil, nil, nil
	return false, nil
}
