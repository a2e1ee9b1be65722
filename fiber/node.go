package fiber

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/fiberparty/element"
)

// Kind is the closed set of work node kinds.
type Kind uint8

const (
	HostRoot Kind = iota
	HostComponent
	HostText
	FunctionComponent
	Fragment
)

func (k Kind) String() string {
	switch k {
	case HostRoot:
		return "root"
	case HostComponent:
		return "host"
	case HostText:
		return "text"
	case FunctionComponent:
		return "component"
	case Fragment:
		return "fragment"
	default:
		return "unknown"
	}
}

func (k Kind) isHost() bool {
	return k == HostComponent || k == HostText
}

const textProp = "content"

// pair holds the two generations of one logical node. A node's alternate is
// the other slot, so both generations always point back at each other.
type pair struct {
	slots [2]*Node
}

// Node is the mutable runtime mirror of one descriptor instance.
type Node struct {
	Kind Kind
	Key  element.Key
	// Type is the host tag or *Component, nil for roots, texts and fragments.
	Type any

	PendingProps  element.Props
	MemoizedProps element.Props
	// MemoizedState holds the root element for HostRoot and the head of the
	// state cell chain for FunctionComponent.
	MemoizedState any

	Parent  *Node
	Child   *Node
	Sibling *Node
	Index   int

	Flags        Flags
	SubtreeFlags Flags
	Deletions    []*Node

	UpdateQueue *UpdateQueue
	// StateNode is the host instance for host kinds and the *Root for HostRoot.
	StateNode any

	pair      *pair
	slot      uint8
	propsHash uint64
}

func newNode(kind Kind, props element.Props, key element.Key) *Node {
	n := &Node{
		Kind:         kind,
		Key:          key,
		PendingProps: props,
		pair:         &pair{},
	}
	n.pair.slots[0] = n
	return n
}

// Alternate returns the other generation of this node, nil if there is none.
func (n *Node) Alternate() *Node {
	if n.pair == nil {
		return nil
	}
	return n.pair.slots[n.slot^1]
}

func (n *Node) String() string {
	switch n.Kind {
	case HostComponent:
		return fmt.Sprintf("%s<%v key=%q>", n.Kind, n.Type, n.Key)
	case HostText:
		return fmt.Sprintf("%s(%q)", n.Kind, textOfProps(n.PendingProps))
	case FunctionComponent:
		return fmt.Sprintf("%s<%v key=%q>", n.Kind, n.Type, n.Key)
	default:
		return fmt.Sprintf("%s key=%q", n.Kind, n.Key)
	}
}

// detach drops the links that keep a deleted node and its other generation
// reachable.
func (n *Node) detach() {
	if alt := n.Alternate(); alt != nil {
		alt.Parent = nil
		alt.Child = nil
		alt.Sibling = nil
		alt.pair = nil
	}
	n.Parent = nil
	n.Child = nil
	n.pair = nil
}

// createWorkInProgress returns the other generation of current, allocating it
// on first use, primed with current's state and the given pending props.
func createWorkInProgress(current *Node, pendingProps element.Props) *Node {
	wip := current.Alternate()
	if wip == nil {
		wip = &Node{
			Kind:      current.Kind,
			Key:       current.Key,
			StateNode: current.StateNode,
			pair:      current.pair,
			slot:      current.slot ^ 1,
		}
		current.pair.slots[wip.slot] = wip
	} else {
		wip.Flags = NoFlags
		wip.SubtreeFlags = NoFlags
		wip.Deletions = nil
	}

	wip.PendingProps = pendingProps
	wip.Type = current.Type
	wip.UpdateQueue = current.UpdateQueue
	wip.Child = current.Child
	wip.Sibling = current.Sibling
	wip.Index = current.Index
	wip.MemoizedProps = current.MemoizedProps
	wip.MemoizedState = current.MemoizedState
	wip.propsHash = current.propsHash

	return wip
}

func newTextNode(text string) *Node {
	return newNode(HostText, textProps(text), element.NoKey)
}

func newFragmentNode(props element.Props, key element.Key) *Node {
	return newNode(Fragment, props, key)
}

// nodeKindOf maps a descriptor onto the node kind it produces.
func nodeKindOf(el *element.Element) (Kind, bool) {
	switch el.Kind {
	case element.KindHost:
		if _, ok := el.Type.(string); ok {
			return HostComponent, true
		}
	case element.KindComponent:
		if _, ok := el.Type.(*Component); ok {
			return FunctionComponent, true
		}
	case element.KindFragment:
		return Fragment, true
	}
	return 0, false
}

func sameType(n *Node, el *element.Element) bool {
	kind, ok := nodeKindOf(el)
	return ok && kind == n.Kind && n.Type == el.Type
}

func createNodeFromElement(el *element.Element) (*Node, error) {
	kind, ok := nodeKindOf(el)
	if !ok {
		return nil, fmt.Errorf("unsupported element kind %s with type %T", el.Kind, el.Type)
	}
	n := newNode(kind, el.Props, el.Key)
	n.Type = el.Type
	return n, nil
}

func textProps(text string) element.Props {
	return element.Props{textProp: text}
}

func textOfProps(p element.Props) string {
	s, _ := p[textProp].(string)
	return s
}

// hashProps fingerprints every prop except children. Children are diffed
// structurally, so a host node is only flagged when its own props change.
func hashProps(p element.Props) uint64 {
	keys := make([]string, 0, len(p))
	for k := range p {
		if k == element.ChildrenProp {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	for _, k := range keys {
		d.WriteString(k)
		d.WriteString("\x00")
		hashValue(d, reflect.ValueOf(p[k]), 0)
		d.WriteString("\x00")
	}
	return d.Sum64()
}

const maxHashDepth = 16

// hashValue writes v by structure: pointers are followed, so equal values
// built fresh on every render hash the same. Functions and channels only
// contribute their type since closures are recreated on every render.
func hashValue(d *xxhash.Digest, v reflect.Value, depth int) {
	if !v.IsValid() {
		d.WriteString("nil")
		return
	}
	if depth > maxHashDepth {
		d.WriteString("...")
		return
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		d.WriteString(v.Type().String())
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			d.WriteString("nil")
			return
		}
		hashValue(d, v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		fmt.Fprintf(d, "%s[%d]{", v.Type(), v.Len())
		for i := 0; i < v.Len(); i++ {
			hashValue(d, v.Index(i), depth+1)
			d.WriteString(",")
		}
		d.WriteString("}")
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
		})
		fmt.Fprintf(d, "%s{", v.Type())
		for _, k := range keys {
			hashValue(d, k, depth+1)
			d.WriteString(":")
			hashValue(d, v.MapIndex(k), depth+1)
			d.WriteString(",")
		}
		d.WriteString("}")
	case reflect.Struct:
		t := v.Type()
		fmt.Fprintf(d, "%s{", t)
		for i := 0; i < v.NumField(); i++ {
			d.WriteString(t.Field(i).Name)
			d.WriteString(":")
			hashValue(d, v.Field(i), depth+1)
			d.WriteString(",")
		}
		d.WriteString("}")
	default:
		fmt.Fprintf(d, "%s:%v", v.Type(), v)
	}
}
