package fiber

import "fmt"

// completeWork builds host instances on mount, flags updates on change and
// bubbles the subtree flags of wip.
func (wl *workLoop) completeWork(wip *Node) error {
	current := wip.Alternate()

	switch wip.Kind {
	case HostRoot, FunctionComponent, Fragment:

	case HostComponent:
		hash := hashProps(wip.PendingProps)
		if current != nil && wip.StateNode != nil {
			if hash != current.propsHash {
				wip.Flags |= UpdateFlag
			}
		} else {
			tag, _ := wip.Type.(string)
			inst, err := wl.r.host.CreateInstance(tag, wip.PendingProps)
			if err != nil {
				return fmt.Errorf("create instance %s: %w", wip, err)
			}
			if err := wl.appendAllChildren(inst, wip); err != nil {
				return err
			}
			wip.StateNode = inst
		}
		wip.propsHash = hash

	case HostText:
		text := textOfProps(wip.PendingProps)
		if current != nil && wip.StateNode != nil {
			if textOfProps(current.MemoizedProps) != text {
				wip.Flags |= UpdateFlag
			}
		} else {
			inst, err := wl.r.host.CreateTextInstance(text)
			if err != nil {
				return fmt.Errorf("create text instance %s: %w", wip, err)
			}
			wip.StateNode = inst
		}

	default:
		panic(fmt.Sprintf("complete: unknown node kind %d", wip.Kind))
	}

	bubbleProperties(wip)
	return nil
}

// appendAllChildren attaches the nearest host descendants of wip to parent,
// looking through component and fragment nodes.
func (wl *workLoop) appendAllChildren(parent any, wip *Node) error {
	node := wip.Child
	for node != nil {
		if node.Kind.isHost() {
			if err := wl.r.host.AppendInitialChild(parent, node.StateNode); err != nil {
				return fmt.Errorf("append %s: %w", node, err)
			}
		} else if node.Child != nil {
			node.Child.Parent = node
			node = node.Child
			continue
		}

		if node == wip {
			return nil
		}
		for node.Sibling == nil {
			if node.Parent == nil || node.Parent == wip {
				return nil
			}
			node = node.Parent
		}
		node.Sibling.Parent = node.Parent
		node = node.Sibling
	}
	return nil
}

func bubbleProperties(wip *Node) {
	subtreeFlags := NoFlags
	for child := wip.Child; child != nil; child = child.Sibling {
		subtreeFlags |= child.SubtreeFlags
		subtreeFlags |= child.Flags
		child.Parent = wip
	}
	wip.SubtreeFlags |= subtreeFlags
}
