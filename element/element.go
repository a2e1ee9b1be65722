// Package element holds the immutable descriptors that describe a desired view
// tree. Descriptors are plain values; the reconciler in package fiber turns them
// into work nodes.
package element

import "fmt"

type Kind uint8

const (
	KindInvalid Kind = iota
	KindHost
	KindComponent
	KindFragment
)

func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindComponent:
		return "component"
	case KindFragment:
		return "fragment"
	default:
		return "invalid"
	}
}

// Key identifies a child among its siblings. The empty key means "no key", in
// which case the child's position is used instead.
type Key string

const NoKey Key = ""

// ChildrenProp is the props entry carrying an element's children.
const ChildrenProp = "children"

type Props map[string]any

// Children returns the children entry, nil when absent.
func (p Props) Children() any {
	if p == nil {
		return nil
	}
	return p[ChildrenProp]
}

// Element describes one desired node. Type is a tag string for host elements,
// a component value for component elements and nil for fragments. Two
// descriptors denote the same node when Key and Type are equal.
type Element struct {
	Kind  Kind
	Type  any
	Key   Key
	Props Props
}

func (e *Element) String() string {
	if e == nil {
		return "<nil>"
	}
	name := "fragment"
	switch t := e.Type.(type) {
	case string:
		name = t
	case fmt.Stringer:
		name = t.String()
	}
	if e.Key != NoKey {
		return fmt.Sprintf("<%s key=%q>", name, e.Key)
	}
	return "<" + name + ">"
}

// H creates a host element. A trailing children list is stored in props; a
// single child is stored as is, several children as a []any.
func H(tag string, props Props, children ...any) *Element {
	return &Element{
		Kind:  KindHost,
		Type:  tag,
		Key:   keyOf(props),
		Props: withChildren(props, children),
	}
}

// Create builds a component element. typ must be comparable; package fiber uses
// *fiber.Component.
func Create(typ any, props Props, children ...any) *Element {
	return &Element{
		Kind:  KindComponent,
		Type:  typ,
		Key:   keyOf(props),
		Props: withChildren(props, children),
	}
}

// Fragment groups children without a host node of its own.
func Fragment(key Key, children ...any) *Element {
	return &Element{
		Kind:  KindFragment,
		Key:   key,
		Props: withChildren(nil, children),
	}
}

// keyOf extracts the reserved "key" prop.
func keyOf(props Props) Key {
	switch k := props["key"].(type) {
	case string:
		return Key(k)
	case Key:
		return k
	case int:
		return Key(fmt.Sprint(k))
	}
	return NoKey
}

func withChildren(props Props, children []any) Props {
	out := make(Props, len(props)+1)
	for k, v := range props {
		if k == "key" {
			continue
		}
		out[k] = v
	}
	switch len(children) {
	case 0:
	case 1:
		out[ChildrenProp] = children[0]
	default:
		out[ChildrenProp] = children
	}
	return out
}
