package fiber

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/delaneyj/fiberparty/element"
)

// childReconciler diffs the children of one parent. With trackSideEffects off
// (first mount of a subtree) nothing is flagged: the subtree root is placed in
// one go and everything below it is attached while completing.
type childReconciler struct {
	wl               *workLoop
	trackSideEffects bool
}

// childIdentity is the `key ?? index` identity used for keyed matching.
type childIdentity struct {
	key   element.Key
	index int
}

func identityOf(key element.Key, index int) childIdentity {
	if key != element.NoKey {
		return childIdentity{key: key, index: -1}
	}
	return childIdentity{index: index}
}

func (c childReconciler) reconcileChildNodes(parent, currentFirst *Node, newChild any) *Node {
	switch v := newChild.(type) {
	case *element.Element:
		if v == nil {
			break
		}
		if v.Kind == element.KindFragment && v.Key == element.NoKey {
			// an unkeyed top level fragment is just its children
			return c.reconcileChildNodes(parent, currentFirst, v.Props.Children())
		}
		return c.placeSingleChild(c.reconcileSingleElement(parent, currentFirst, v))
	case []any:
		return c.reconcileChildrenArray(parent, currentFirst, v)
	case []*element.Element:
		children := make([]any, len(v))
		for i, el := range v {
			children[i] = el
		}
		return c.reconcileChildrenArray(parent, currentFirst, children)
	case nil, bool:
	default:
		if text, ok := textOf(newChild); ok {
			return c.placeSingleChild(c.reconcileSingleTextNode(parent, currentFirst, text))
		}
		c.unsupported(parent, newChild)
	}

	c.deleteRemainingChildren(parent, currentFirst)
	return nil
}

func (c childReconciler) reconcileSingleElement(parent, current *Node, el *element.Element) *Node {
	for current != nil {
		if current.Key == el.Key {
			if sameType(current, el) {
				existing := c.useNode(current, el.Props)
				existing.Parent = parent
				c.deleteRemainingChildren(parent, current.Sibling)
				return existing
			}
			// same key, different type: nothing after it can match either
			c.deleteRemainingChildren(parent, current)
			break
		}
		c.deleteChild(parent, current)
		current = current.Sibling
	}

	n, err := createNodeFromElement(el)
	if err != nil {
		c.unsupported(parent, el)
		return nil
	}
	n.Parent = parent
	return n
}

func (c childReconciler) reconcileSingleTextNode(parent, current *Node, text string) *Node {
	for current != nil {
		if current.Kind == HostText {
			existing := c.useNode(current, textProps(text))
			existing.Parent = parent
			c.deleteRemainingChildren(parent, current.Sibling)
			return existing
		}
		c.deleteChild(parent, current)
		current = current.Sibling
	}

	n := newTextNode(text)
	n.Parent = parent
	return n
}

func (c childReconciler) reconcileChildrenArray(parent, currentFirst *Node, children []any) *Node {
	existing := map[childIdentity]*Node{}
	for current := currentFirst; current != nil; current = current.Sibling {
		id := identityOf(current.Key, current.Index)
		if _, dup := existing[id]; dup {
			// reported when this list was rendered, swept below
			continue
		}
		existing[id] = current
	}
	reused := map[*Node]bool{}

	seen := map[element.Key]bool{}
	var first, last *Node
	// highest old index among reused nodes that stayed in place
	lastPlacedIndex := 0
	for i, child := range children {
		if el, ok := child.(*element.Element); ok && el != nil && el.Key != element.NoKey {
			if seen[el.Key] {
				c.duplicateKey(parent, el.Key)
			}
			seen[el.Key] = true
		}
		n := c.updateFromMap(parent, existing, i, child)
		if n == nil {
			continue
		}
		n.Index = i
		n.Parent = parent
		if last == nil {
			first = n
		} else {
			last.Sibling = n
		}
		last = n

		current := n.Alternate()
		if current != nil {
			reused[current] = true
		}
		if !c.trackSideEffects {
			continue
		}
		if current != nil {
			if current.Index < lastPlacedIndex {
				n.Flags |= Placement
				continue
			}
			lastPlacedIndex = current.Index
		} else {
			n.Flags |= Placement
		}
	}

	// walk the old list instead of the map to keep deletion order stable and
	// to catch siblings shadowed by a repeated key
	for current := currentFirst; current != nil; current = current.Sibling {
		if !reused[current] {
			c.deleteChild(parent, current)
		}
	}
	return first
}

// updateFromMap reuses the old node with the same identity when its type
// matches, otherwise creates a new node.
func (c childReconciler) updateFromMap(parent *Node, existing map[childIdentity]*Node, index int, child any) *Node {
	switch v := child.(type) {
	case *element.Element:
		if v == nil {
			return nil
		}
		id := identityOf(v.Key, index)
		before := existing[id]
		if before != nil && sameType(before, v) {
			delete(existing, id)
			return c.useNode(before, v.Props)
		}
		n, err := createNodeFromElement(v)
		if err != nil {
			c.unsupported(parent, v)
			return nil
		}
		return n
	case []any:
		id := identityOf(element.NoKey, index)
		props := element.Props{element.ChildrenProp: v}
		if before := existing[id]; before != nil && before.Kind == Fragment {
			delete(existing, id)
			return c.useNode(before, props)
		}
		return newFragmentNode(props, element.NoKey)
	case nil, bool:
		return nil
	}

	text, ok := textOf(child)
	if !ok {
		c.unsupported(parent, child)
		return nil
	}
	id := identityOf(element.NoKey, index)
	if before := existing[id]; before != nil && before.Kind == HostText {
		delete(existing, id)
		return c.useNode(before, textProps(text))
	}
	return newTextNode(text)
}

func (c childReconciler) placeSingleChild(n *Node) *Node {
	if n != nil && c.trackSideEffects && n.Alternate() == nil {
		n.Flags |= Placement
	}
	return n
}

// useNode clones n into the work-in-progress generation as an only child.
func (c childReconciler) useNode(n *Node, pendingProps element.Props) *Node {
	clone := createWorkInProgress(n, pendingProps)
	clone.Index = 0
	clone.Sibling = nil
	return clone
}

func (c childReconciler) deleteChild(parent, child *Node) {
	if !c.trackSideEffects {
		return
	}
	parent.Deletions = append(parent.Deletions, child)
	parent.Flags |= ChildDeletion
}

func (c childReconciler) deleteRemainingChildren(parent, currentFirst *Node) {
	if !c.trackSideEffects {
		return
	}
	for child := currentFirst; child != nil; child = child.Sibling {
		c.deleteChild(parent, child)
	}
}

func (c childReconciler) unsupported(parent *Node, child any) {
	c.wl.r.logger.Warn("unsupported child ignored",
		slog.String("parent", parent.String()),
		slog.String("type", typeName(child)),
	)
	c.wl.diagnostics++
}

func (c childReconciler) duplicateKey(parent *Node, key element.Key) {
	c.wl.r.logger.Warn("duplicate key among siblings",
		slog.String("parent", parent.String()),
		slog.String("key", string(key)),
	)
	c.wl.diagnostics++
}

// textOf converts the value kinds rendered as text.
func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	}
	return "", false
}

func typeName(v any) string {
	if el, ok := v.(*element.Element); ok && el != nil {
		return el.String()
	}
	return fmt.Sprintf("%T", v)
}
