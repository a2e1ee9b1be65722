package fiber

import (
	"fmt"
	"log/slog"

	"github.com/delaneyj/fiberparty/element"
)

// committer applies the effect flags of one finished tree to the host.
type committer struct {
	r    *Reconciler
	root *Root

	placements int
	updates    int
	deletions  int
	unmounts   int
	removed    int
}

// commitMutationEffects walks the finished tree depth first, only entering
// subtrees whose flags carry mutation work, and applies each node's effects
// after its children.
func (c *committer) commitMutationEffects(finished *Node) error {
	next := finished
	for next != nil {
		child := next.Child
		if next.SubtreeFlags&MutationMask != NoFlags && child != nil {
			next = child
			continue
		}

		for next != nil {
			if err := c.commitMutationEffectsOnNode(next); err != nil {
				return err
			}
			if next == finished {
				return nil
			}
			if next.Sibling != nil {
				next = next.Sibling
				break
			}
			next = next.Parent
		}
	}
	return nil
}

func (c *committer) commitMutationEffectsOnNode(n *Node) error {
	flags := n.Flags

	if flags&Placement != NoFlags {
		if err := c.commitPlacement(n); err != nil {
			return err
		}
		n.Flags &^= Placement
	}
	if flags&UpdateFlag != NoFlags {
		if err := c.commitUpdate(n); err != nil {
			return err
		}
		n.Flags &^= UpdateFlag
	}
	if flags&ChildDeletion != NoFlags {
		for _, child := range n.Deletions {
			if err := c.commitDeletion(child); err != nil {
				return err
			}
		}
		n.Deletions = nil
		n.Flags &^= ChildDeletion
	}
	return nil
}

func (c *committer) commitPlacement(n *Node) error {
	parent, ok := hostParentOf(n)
	if !ok {
		c.r.logger.Warn("no host parent for placement", slog.String("node", n.String()))
		return nil
	}
	c.placements++
	return c.insertOrAppendPlacementNode(n, parent, hostSiblingOf(n))
}

// insertOrAppendPlacementNode inserts the host instances of n, or of its
// nearest host descendants for wrapper kinds, before the anchor.
func (c *committer) insertOrAppendPlacementNode(n *Node, parent, before any) error {
	host := c.r.host
	if n.Kind.isHost() {
		if before != nil {
			if err := host.InsertChildToContainer(n.StateNode, parent, before); err != nil {
				return fmt.Errorf("insert %s: %w", n, err)
			}
			return nil
		}
		if err := host.AppendChildToContainer(n.StateNode, parent); err != nil {
			return fmt.Errorf("append %s: %w", n, err)
		}
		return nil
	}

	for child := n.Child; child != nil; child = child.Sibling {
		if err := c.insertOrAppendPlacementNode(child, parent, before); err != nil {
			return err
		}
	}
	return nil
}

func (c *committer) commitUpdate(n *Node) error {
	current := n.Alternate()
	var oldProps element.Props
	if current != nil {
		oldProps = current.MemoizedProps
	}

	switch n.Kind {
	case HostComponent:
		tag, _ := n.Type.(string)
		if err := c.r.host.CommitUpdate(n.StateNode, tag, oldProps, n.MemoizedProps); err != nil {
			return fmt.Errorf("update %s: %w", n, err)
		}
	case HostText:
		if err := c.r.host.CommitTextUpdate(n.StateNode, textOfProps(oldProps), textOfProps(n.MemoizedProps)); err != nil {
			return fmt.Errorf("update %s: %w", n, err)
		}
	case HostRoot, FunctionComponent, Fragment:
		return nil
	default:
		panic(fmt.Sprintf("commit: unknown node kind %d", n.Kind))
	}
	c.updates++
	return nil
}

// commitDeletion removes the nearest host descendants of a deleted node from
// their host parent and notifies the components inside it.
func (c *committer) commitDeletion(deleted *Node) error {
	c.deletions++

	var hostChildren []*Node
	c.collectUnmounts(deleted, false, &hostChildren)

	if len(hostChildren) > 0 {
		parent, ok := hostParentOf(deleted)
		if !ok {
			c.r.logger.Warn("no host parent for deletion", slog.String("node", deleted.String()))
		} else {
			for _, h := range hostChildren {
				if err := c.r.host.RemoveChild(h.StateNode, parent); err != nil {
					return fmt.Errorf("remove %s: %w", h, err)
				}
				c.removed++
			}
		}
	}

	detachSubtree(deleted)
	return nil
}

// collectUnmounts visits the deleted subtree in pre-order. Host nodes that are
// not inside another host node are the ones to remove from the host parent.
func (c *committer) collectUnmounts(n *Node, insideHost bool, hostChildren *[]*Node) {
	switch n.Kind {
	case HostComponent, HostText:
		if !insideHost {
			*hostChildren = append(*hostChildren, n)
		}
	case FunctionComponent:
		runUnmounts(n)
		c.unmounts++
		c.r.observer.ComponentUnmounted(c.root, n)
	case Fragment, HostRoot:
	default:
		panic(fmt.Sprintf("commit: unknown node kind %d", n.Kind))
	}

	inside := insideHost || n.Kind.isHost()
	for child := n.Child; child != nil; child = child.Sibling {
		c.collectUnmounts(child, inside, hostChildren)
	}
}

// detachSubtree cuts the parent links of a deleted subtree in both
// generations, so dispatches from inside it no longer reach the root.
func detachSubtree(n *Node) {
	for child := n.Child; child != nil; {
		next := child.Sibling
		detachSubtree(child)
		child = next
	}
	n.detach()
}

// hostParentOf returns the host instance or container children of n attach to.
func hostParentOf(n *Node) (any, bool) {
	for parent := n.Parent; parent != nil; parent = parent.Parent {
		switch parent.Kind {
		case HostRoot:
			root, ok := parent.StateNode.(*Root)
			if !ok {
				return nil, false
			}
			return root.Container, true
		case HostComponent:
			return parent.StateNode, true
		}
	}
	return nil, false
}

// hostSiblingOf finds the host instance n must be inserted before: the next
// host node in document order under the same host parent that is not itself
// being placed. nil means append.
func hostSiblingOf(n *Node) any {
	node := n
siblings:
	for {
		for node.Sibling == nil {
			parent := node.Parent
			if parent == nil || parent.Kind == HostComponent || parent.Kind == HostRoot {
				return nil
			}
			node = parent
		}
		node.Sibling.Parent = node.Parent
		node = node.Sibling

		for !node.Kind.isHost() {
			// an unstable wrapper cannot provide an anchor
			if node.Flags&Placement != NoFlags || node.Child == nil {
				continue siblings
			}
			node.Child.Parent = node
			node = node.Child
		}

		if node.Flags&Placement == NoFlags {
			return node.StateNode
		}
	}
}
