package scenario_test

import (
	"testing"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/memhost"
	"github.com/delaneyj/fiberparty/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	s, err := scenario.Load("testdata/keyed_list.yaml")
	require.NoError(t, err)
	assert.Equal(t, "keyed list", s.Name)
	require.Len(t, s.Steps, 4)

	host := memhost.New()
	container := host.NewContainer()
	r := fiber.CreateReconciler(host)
	root := r.CreateContainer(container)

	for _, step := range s.Steps {
		el, err := step.Element(nil)
		require.NoError(t, err, step.Name)
		r.Render(root, el)
		host.RunUntilIdle()
		require.NoError(t, root.Err(), step.Name)
		require.NotNil(t, step.Expect, step.Name)
		assert.Equal(t, *step.Expect, memhost.HTML(container), step.Name)
	}
	assert.Zero(t, host.Live().Cardinality())
}

func TestParse(t *testing.T) {
	t.Run("components are resolved by name", func(t *testing.T) {
		s, err := scenario.Parse([]byte(`
steps:
  - tree:
      component: Greeting
      props: {name: gopher}
`))
		require.NoError(t, err)
		assert.Equal(t, "step 1", s.Steps[0].Name)

		greeting := fiber.NewComponent("Greeting", func(h *fiber.Hooks, props element.Props) any {
			return element.H("b", nil, props["name"])
		})
		el, err := s.Steps[0].Element(scenario.Components{"Greeting": greeting})
		require.NoError(t, err)
		assert.Equal(t, element.KindComponent, el.Kind)
		assert.Equal(t, greeting, el.Type)
		assert.Equal(t, "gopher", el.Props["name"])

		_, err = s.Steps[0].Element(nil)
		assert.ErrorIs(t, err, scenario.ErrUnknownComponent)
	})

	t.Run("nested lists and scalars become children", func(t *testing.T) {
		s, err := scenario.Parse([]byte(`
steps:
  - tree:
      tag: p
      children:
        - hello
        - [a, b]
        - null
`))
		require.NoError(t, err)
		el, err := s.Steps[0].Element(nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"hello", []any{"a", "b"}, nil}, el.Props.Children())
	})

	t.Run("an element needs exactly one kind", func(t *testing.T) {
		_, err := scenario.Parse([]byte(`
steps:
  - tree: {tag: p, fragment: true}
`))
		assert.ErrorIs(t, err, scenario.ErrInvalidNode)
	})

	t.Run("a scalar tree is rejected", func(t *testing.T) {
		_, err := scenario.Parse([]byte(`
steps:
  - tree: hello
`))
		assert.ErrorIs(t, err, scenario.ErrInvalidNode)
	})

	t.Run("steps are required", func(t *testing.T) {
		_, err := scenario.Parse([]byte(`name: empty`))
		assert.ErrorIs(t, err, scenario.ErrNoSteps)
	})
}
