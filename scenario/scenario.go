package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoSteps          = errors.New("scenario has no steps")
	ErrInvalidNode      = errors.New("invalid tree node")
	ErrUnknownComponent = errors.New("unknown component")
)

// Scenario is a sequence of trees rendered one after the other into the same
// root.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Name string `yaml:"name"`
	Tree *Node  `yaml:"tree"`
	// Expect is the HTML the container must hold once the step is committed.
	// Empty means unchecked.
	Expect *string `yaml:"expect"`
}

// Node is one value of a tree: null, a scalar rendered as text, a list, or a
// mapping describing an element.
type Node struct {
	Null bool
	Text string
	List []*Node

	IsElement bool
	Tag       string
	Component string
	Fragment  bool
	Key       string
	Props     map[string]any
	Children  []*Node
}

type elementNode struct {
	Tag       string         `yaml:"tag"`
	Component string         `yaml:"component"`
	Fragment  bool           `yaml:"fragment"`
	Key       string         `yaml:"key"`
	Props     map[string]any `yaml:"props"`
	Children  []*Node        `yaml:"children"`
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.AliasNode:
		return n.UnmarshalYAML(value.Alias)
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			n.Null = true
			return nil
		}
		n.Text = value.Value
		return nil
	case yaml.SequenceNode:
		return value.Decode(&n.List)
	case yaml.MappingNode:
		var raw elementNode
		if err := value.Decode(&raw); err != nil {
			return err
		}
		set := 0
		for _, ok := range []bool{raw.Tag != "", raw.Component != "", raw.Fragment} {
			if ok {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("line %d: %w: exactly one of tag, component or fragment is required", value.Line, ErrInvalidNode)
		}
		*n = Node{
			IsElement: true,
			Tag:       raw.Tag,
			Component: raw.Component,
			Fragment:  raw.Fragment,
			Key:       raw.Key,
			Props:     raw.Props,
			Children:  raw.Children,
		}
		return nil
	default:
		return fmt.Errorf("line %d: %w", value.Line, ErrInvalidNode)
	}
}

// Parse decodes a scenario from YAML.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, ErrNoSteps
	}
	for i, step := range s.Steps {
		if step.Tree != nil && !step.Tree.Null && !step.Tree.IsElement {
			return nil, fmt.Errorf("step %d: %w: tree must be an element or null", i, ErrInvalidNode)
		}
		if step.Name == "" {
			s.Steps[i].Name = fmt.Sprintf("step %d", i+1)
		}
	}
	return s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Components resolves the component names used in scenario trees.
type Components map[string]*fiber.Component

// Element builds the descriptor of a step tree, nil for an empty tree.
func (s Step) Element(components Components) (*element.Element, error) {
	if s.Tree == nil || s.Tree.Null {
		return nil, nil
	}
	v, err := s.Tree.value(components)
	if err != nil {
		return nil, err
	}
	el, _ := v.(*element.Element)
	return el, nil
}

func (n *Node) value(components Components) (any, error) {
	switch {
	case n == nil || n.Null:
		return nil, nil
	case n.List != nil:
		list := make([]any, 0, len(n.List))
		for _, c := range n.List {
			v, err := c.value(components)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case !n.IsElement:
		return n.Text, nil
	}

	children := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		v, err := c.value(components)
		if err != nil {
			return nil, err
		}
		children = append(children, v)
	}

	props := element.Props{}
	for k, v := range n.Props {
		props[k] = v
	}
	if n.Key != "" {
		props["key"] = n.Key
	}

	switch {
	case n.Fragment:
		return element.Fragment(element.Key(n.Key), children...), nil
	case n.Component != "":
		c, ok := components[n.Component]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, n.Component)
		}
		return c.Element(props, children...), nil
	default:
		return element.H(n.Tag, props, children...), nil
	}
}
