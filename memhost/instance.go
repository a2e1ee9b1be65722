package memhost

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/delaneyj/fiberparty/element"
)

const containerTag = "#container"

// Instance is one node of the in-memory host tree: an element, a text node or
// a container.
type Instance struct {
	ID    int
	Tag   string
	Text  string
	Props element.Props

	Parent   *Instance
	Children []*Instance
}

func (i *Instance) IsText() bool {
	return i.Tag == ""
}

func (i *Instance) IsContainer() bool {
	return i.Tag == containerTag
}

func (i *Instance) String() string {
	switch {
	case i == nil:
		return ""
	case i.IsContainer():
		return containerTag
	case i.IsText():
		return strconv.Quote(i.Text) + "#" + strconv.Itoa(i.ID)
	default:
		return fmt.Sprintf("%s#%d", i.Tag, i.ID)
	}
}

// TextContent concatenates the text of every text node below i.
func (i *Instance) TextContent() string {
	if i.IsText() {
		return i.Text
	}
	var sb strings.Builder
	i.walk(func(n *Instance) {
		if n.IsText() {
			sb.WriteString(n.Text)
		}
	})
	return sb.String()
}

func (i *Instance) indexOf(child *Instance) int {
	return slices.Index(i.Children, child)
}

func (i *Instance) remove(child *Instance) bool {
	idx := i.indexOf(child)
	if idx < 0 {
		return false
	}
	i.Children = slices.Delete(i.Children, idx, idx+1)
	child.Parent = nil
	return true
}

func (i *Instance) insert(child *Instance, at int) {
	i.Children = slices.Insert(i.Children, at, child)
	child.Parent = i
}

func (i *Instance) walk(fn func(*Instance)) {
	fn(i)
	for _, c := range i.Children {
		c.walk(fn)
	}
}

// attributes copies props without children and without values that have no
// attribute form.
func attributes(props element.Props) element.Props {
	out := make(element.Props, len(props))
	for k, v := range props {
		if k == element.ChildrenProp || k == "key" {
			continue
		}
		switch v.(type) {
		case nil, func(), []any, *element.Element:
			continue
		}
		out[k] = v
	}
	return out
}
