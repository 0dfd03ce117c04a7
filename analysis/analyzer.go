// Package analysis applies corrective passes over a resolved mapping tree:
// completing inner-class names a source left blank, dropping namespace
// columns that add no value, and stripping members every class carries
// implicitly. Passes queue their findings as resolutions so callers can
// inspect what would change before committing.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viant/maphist/classfile"
	"github.com/viant/maphist/mapping"
	"go.uber.org/zap"
)

// Config toggles the analyzer passes. Passes referring to a namespace absent
// from the analyzed tree are skipped.
type Config struct {
	// CompleteInnerClasses fills missing inner-class names from the outer
	// class name, taking the inner segment from CompletionNamespace.
	CompleteInnerClasses bool   `yaml:"completeInnerClasses"`
	CompletionNamespace  string `yaml:"completionNamespace"`
	// PruneNamespaces lists namespace columns to drop entirely.
	PruneNamespaces []string `yaml:"pruneNamespaces"`
	// StripImplicitMembers removes class initializers, unmapped default
	// constructors and unmapped Object-override boilerplate.
	StripImplicitMembers bool `yaml:"stripImplicitMembers"`
	// IgnoredNamespaces are excluded when deciding whether a member carries
	// a real mapping; synthetic structural namespaces never rename anything.
	IgnoredNamespaces []string `yaml:"ignoredNamespaces"`
}

// Resolution is one queued tree correction.
type Resolution struct {
	Description string
	apply       func() error
}

// Analyzer runs the configured passes over mapping trees.
type Analyzer struct {
	config Config
	logger *zap.Logger

	resolutions []Resolution
}

// New creates an analyzer.
func New(config Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{config: config, logger: logger}
}

// Analyze inspects a tree and queues resolutions for every enabled pass.
// Nothing is modified until AcceptResolutions.
func (a *Analyzer) Analyze(tree *mapping.Tree) error {
	if a.config.CompleteInnerClasses {
		if err := a.completeInnerClasses(tree); err != nil {
			return err
		}
	}
	a.pruneNamespaces(tree)
	if a.config.StripImplicitMembers {
		a.stripImplicitMembers(tree)
	}
	return nil
}

// Resolutions returns the queued corrections.
func (a *Analyzer) Resolutions() []Resolution {
	return a.resolutions
}

// AcceptResolutions commits every queued correction and clears the queue.
func (a *Analyzer) AcceptResolutions() error {
	for _, resolution := range a.resolutions {
		a.logger.Debug("applying resolution", zap.String("description", resolution.Description))
		if err := resolution.apply(); err != nil {
			return fmt.Errorf("%v: %w", resolution.Description, err)
		}
	}
	a.resolutions = nil
	return nil
}

func (a *Analyzer) queue(description string, apply func() error) {
	a.resolutions = append(a.resolutions, Resolution{Description: description, apply: apply})
}

// completeInnerClasses synthesizes missing inner-class names: when an inner
// class has no name under a namespace but its outer class does, the missing
// name becomes "<outer>$<segment>" with the segment taken from the completion
// namespace when that carries one.
func (a *Analyzer) completeInnerClasses(tree *mapping.Tree) error {
	completionID, ok := tree.Namespace(a.config.CompletionNamespace)
	if !ok {
		a.logger.Debug("completion namespace absent, pass skipped",
			zap.String("namespace", a.config.CompletionNamespace))
		return nil
	}
	// shallow inner classes first, so a completed outer name is in place
	// by the time a deeper class resolves against it
	inner := make([]*mapping.Class, 0)
	for _, class := range tree.Classes() {
		if strings.IndexByte(class.Source(), '$') > 0 {
			inner = append(inner, class)
		}
	}
	sort.Slice(inner, func(i, j int) bool {
		di, dj := strings.Count(inner[i].Source(), "$"), strings.Count(inner[j].Source(), "$")
		if di != dj {
			return di < dj
		}
		return inner[i].Source() < inner[j].Source()
	})
	for _, name := range tree.Namespaces() {
		nsID, _ := tree.Namespace(name)
		if nsID == 0 || nsID == completionID {
			continue
		}
		for _, class := range inner {
			src := class.Source()
			sep := strings.LastIndexByte(src, '$')
			if _, ok := class.Name(nsID); ok {
				continue
			}
			outer, ok := tree.Class(src[:sep])
			if !ok {
				continue
			}
			segment := src[sep+1:]
			if completed, ok := class.Name(completionID); ok {
				if idx := strings.LastIndexByte(completed, '$'); idx >= 0 {
					segment = completed[idx+1:]
				}
			}
			a.queue(fmt.Sprintf("complete inner class %v under %v", src, name),
				func() error {
					outerName, ok := outer.Name(nsID)
					if !ok {
						return nil
					}
					return class.SetName(nsID, outerName+"$"+segment)
				})
		}
	}
	return nil
}

func (a *Analyzer) pruneNamespaces(tree *mapping.Tree) {
	for _, name := range a.config.PruneNamespaces {
		if _, ok := tree.Namespace(name); !ok {
			continue
		}
		a.queue(fmt.Sprintf("prune namespace %v", name),
			func() error { return tree.PruneNamespace(name) })
	}
}

// implicitOverrides lists the Object methods every class inherits; a mapping
// naming one identically in every namespace adds nothing.
var implicitOverrides = map[string]string{
	"toString": "()Ljava/lang/String;",
	"hashCode": "()I",
	"equals":   "(Ljava/lang/Object;)Z",
	"clone":    "()Ljava/lang/Object;",
	"finalize": "()V",
}

func (a *Analyzer) stripImplicitMembers(tree *mapping.Tree) {
	for _, class := range tree.Classes() {
		for _, method := range class.Methods() {
			if !a.implicitMethod(tree, method) {
				continue
			}
			a.queue(fmt.Sprintf("strip implicit method %v.%v%v",
				class.Source(), method.Source(), method.SourceDescriptor()),
				func() error { return class.RemoveMethod(method) })
		}
	}
}

func (a *Analyzer) implicitMethod(tree *mapping.Tree, method *mapping.Method) bool {
	switch method.Source() {
	case "<clinit>":
		return true
	case "<init>":
		return method.SourceDescriptor() == "()V" && a.unmapped(tree, method)
	}
	if desc, ok := implicitOverrides[method.Source()]; ok {
		if desc == method.SourceDescriptor() {
			return a.unmapped(tree, method)
		}
		// a covariant clone narrows the return type but is still the
		// Object override
		if method.Source() == "clone" && covariantClone(method.SourceDescriptor()) {
			return a.unmapped(tree, method)
		}
	}
	return false
}

func covariantClone(desc string) bool {
	params, err := classfile.ParameterTypes(desc)
	if err != nil || len(params) != 0 {
		return false
	}
	ret, err := classfile.ReturnType(desc)
	return err == nil && strings.HasPrefix(ret, "L")
}

// unmapped reports whether no namespace renames the method: every
// destination name is absent or equal to the source name.
func (a *Analyzer) unmapped(tree *mapping.Tree, method *mapping.Method) bool {
	for _, name := range tree.Namespaces() {
		nsID, _ := tree.Namespace(name)
		if nsID == 0 || a.ignored(name) {
			continue
		}
		if dst, ok := method.Name(nsID); ok && dst != method.Source() {
			return false
		}
	}
	return true
}

func (a *Analyzer) ignored(ns string) bool {
	for _, name := range a.config.IgnoredNamespaces {
		if name == ns {
			return true
		}
	}
	return false
}
