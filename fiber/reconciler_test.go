package fiber_test

import (
	"testing"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/memhost"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEndToEnd(t *testing.T) {
	f := newFixture(t)
	assert.NotEqual(t, uuid.Nil, f.root.ID)

	tree := func(text string) *element.Element {
		return element.H("div", nil, element.H("span", nil, text))
	}

	el := tree("hi")
	assert.Same(t, el, f.r.Render(f.root, el))
	assert.Empty(t, f.ops(), "nothing happens before the loop runs")
	f.host.RunUntilIdle()

	// should build bottom up and attach the finished subtree once
	f.assertOps(t, []memhost.Op{
		{Kind: memhost.OpCreateText, Child: `"hi"#1`},
		{Kind: memhost.OpCreate, Child: "span#2"},
		{Kind: memhost.OpAppendInitial, Parent: "span#2", Child: `"hi"#1`},
		{Kind: memhost.OpCreate, Child: "div#3"},
		{Kind: memhost.OpAppendInitial, Parent: "div#3", Child: "span#2"},
		{Kind: memhost.OpAppend, Parent: "#container", Child: "div#3"},
	})
	assert.Equal(t, "<div><span>hi</span></div>", f.html())

	f.host.ResetOps()
	f.render(tree("bye"))

	// should touch the text node only
	f.assertOps(t, []memhost.Op{
		{Kind: memhost.OpUpdateText, Child: `"bye"#1`, Detail: `"hi" -> "bye"`},
	})
	assert.Equal(t, "<div><span>bye</span></div>", f.html())
	assert.NoError(t, f.root.Err())
	assert.Empty(t, f.rec.errs)
}

func TestRenderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	tree := func() *element.Element {
		return element.H("ul", element.Props{"class": "list"},
			element.H("li", element.Props{"key": "a"}, "A"),
			element.H("li", element.Props{"key": "b"}, 42),
			[]any{"x", nil, true, 1.5},
		)
	}
	f.render(tree())
	want := f.html()
	assert.Equal(t, `<ul class="list"><li>A</li><li>42</li>x1.5</ul>`, want)

	for i := 0; i < 3; i++ {
		f.host.ResetOps()
		f.render(tree())
		// should not mutate the host when nothing changed
		assert.Empty(t, f.ops(), "pass %d", i)
		assert.Equal(t, want, f.html())
	}
	for _, c := range f.rec.commits[1:] {
		assert.Zero(t, c.Placements+c.Updates+c.Deletions)
	}
}

func TestKeyedReuse(t *testing.T) {
	f := newFixture(t)
	item := func(key string) *element.Element {
		return element.H("li", element.Props{"key": key}, key)
	}

	f.render(element.H("ul", nil, item("a"), item("b")))
	ul := f.container.Children[0]
	before := append([]*memhost.Instance(nil), ul.Children...)

	f.host.ResetOps()
	f.render(element.H("ul", nil, item("b"), item("a")))

	// should move one node and create or remove nothing
	f.assertOps(t, []memhost.Op{
		{Kind: memhost.OpAppend, Parent: "ul#5", Child: "li#2"},
	})
	assert.Equal(t, "<ul><li>b</li><li>a</li></ul>", f.html())
	require.Len(t, ul.Children, 2)
	assert.Same(t, before[1], ul.Children[0])
	assert.Same(t, before[0], ul.Children[1])

	last := f.rec.commits[len(f.rec.commits)-1]
	assert.Equal(t, 1, last.Placements)
}

func TestInsertBeforeStableSibling(t *testing.T) {
	f := newFixture(t)
	item := func(key string) *element.Element {
		return element.H("li", element.Props{"key": key}, key)
	}

	f.render(element.H("ul", nil, item("a"), item("b")))
	f.host.ResetOps()
	f.render(element.H("ul", nil, item("c"), item("a"), item("b")))

	ops := f.ops()
	require.NotEmpty(t, ops)
	last := ops[len(ops)-1]
	assert.Equal(t, memhost.OpInsert, last.Kind)
	assert.Equal(t, "li#2", last.Before)
	assert.Equal(t, "<ul><li>c</li><li>a</li><li>b</li></ul>", f.html())
}

func TestTypeChangeReplaces(t *testing.T) {
	f := newFixture(t)
	f.render(element.H("div", nil, "x"))
	div := f.container.Children[0]

	f.host.ResetOps()
	f.render(element.H("p", nil, "x"))

	// should build the new node, place it and remove the old one
	assert.Equal(t, []memhost.OpKind{
		memhost.OpCreateText,
		memhost.OpCreate,
		memhost.OpAppendInitial,
		memhost.OpAppend,
		memhost.OpRemove,
	}, opKinds(f.ops()))
	assert.Equal(t, "<p>x</p>", f.html())
	assert.False(t, f.host.Live().Contains(div))
	assert.Equal(t, 2, f.host.Live().Cardinality())
}

func TestSameKeyDifferentTypeDropsSiblings(t *testing.T) {
	f := newFixture(t)
	f.render(element.H("section", nil,
		element.H("div", element.Props{"key": "k"}),
		element.H("span", nil),
	))

	f.host.ResetOps()
	f.render(element.H("section", nil, element.H("p", element.Props{"key": "k"})))

	assert.Equal(t, "<section><p></p></section>", f.html())
	removed := 0
	for _, op := range f.ops() {
		if op.Kind == memhost.OpRemove {
			removed++
		}
	}
	assert.Equal(t, 2, removed)
}

func TestDeletionIsComplete(t *testing.T) {
	f := newFixture(t)
	var unmounted []string

	inner := fiber.NewComponent("Inner", func(h *fiber.Hooks, props element.Props) any {
		fiber.UseUnmount(h, func() {
			unmounted = append(unmounted, "inner")
		})
		return []any{element.H("span", nil), "t"}
	})
	outer := fiber.NewComponent("Outer", func(h *fiber.Hooks, props element.Props) any {
		fiber.UseUnmount(h, func() {
			unmounted = append(unmounted, "outer")
		})
		return []any{element.H("div", nil), inner.Element(nil)}
	})

	f.render(outer.Element(nil))
	assert.Equal(t, "<div></div><span></span>t", f.html())
	require.Len(t, f.container.Children, 3)

	f.host.ResetOps()
	f.render(nil)

	// should remove every host child of the container and notify both
	// components, outer first
	assert.Empty(t, f.container.Children)
	assert.Zero(t, f.host.Live().Cardinality())
	assert.Equal(t, []string{"outer", "inner"}, unmounted)
	assert.Equal(t, []string{"component<Outer key=\"\">", "component<Inner key=\"\">"}, f.rec.unmounted)

	last := f.rec.commits[len(f.rec.commits)-1]
	assert.Equal(t, 1, last.Deletions)
	assert.Equal(t, 3, last.HostRemoved)
	assert.Equal(t, 2, last.Unmounts)
}

func TestNestedHostChildrenStayAttached(t *testing.T) {
	f := newFixture(t)
	f.render(element.H("ul", nil,
		element.H("li", element.Props{"key": "a"}, element.H("b", nil, "bold")),
		element.H("li", element.Props{"key": "b"}),
	))

	f.host.ResetOps()
	f.render(element.H("ul", nil, element.H("li", element.Props{"key": "b"})))

	// should only detach the li, its children go with it
	assert.Equal(t, []memhost.Op{
		{Kind: memhost.OpRemove, Parent: "ul#5", Child: "li#3"},
	}, f.ops())
	assert.Equal(t, 2, f.host.Live().Cardinality())
}

func TestFragments(t *testing.T) {
	t.Run("an unkeyed fragment places every child", func(t *testing.T) {
		f := newFixture(t)
		f.render(element.Fragment(element.NoKey, element.H("a", nil), "b", element.H("c", nil)))
		assert.Equal(t, "<a></a>b<c></c>", f.html())
		assert.Len(t, f.container.Children, 3)
	})

	t.Run("a moved keyed fragment moves all of its children", func(t *testing.T) {
		f := newFixture(t)
		tree := func(fragmentFirst bool) *element.Element {
			frag := element.Fragment("f", "x", "y")
			p := element.H("p", element.Props{"key": "p"})
			if fragmentFirst {
				return element.H("div", nil, frag, p)
			}
			return element.H("div", nil, p, frag)
		}
		f.render(tree(true))
		assert.Equal(t, "<div>xy<p></p></div>", f.html())

		f.host.ResetOps()
		f.render(tree(false))
		assert.Equal(t, "<div><p></p>xy</div>", f.html())
		assert.Equal(t, []memhost.OpKind{memhost.OpAppend, memhost.OpAppend}, opKinds(f.ops()))
	})

	t.Run("nested lists are fragments keyed by position", func(t *testing.T) {
		f := newFixture(t)
		f.render(element.H("div", nil, "a", []any{"b", "c"}))
		assert.Equal(t, "<div>abc</div>", f.html())

		f.host.ResetOps()
		f.render(element.H("div", nil, "a", []any{"b", "d"}))
		assert.Equal(t, "<div>abd</div>", f.html())
		assert.Equal(t, []memhost.OpKind{memhost.OpUpdateText}, opKinds(f.ops()))
	})
}

func TestChildrenThatRenderNothing(t *testing.T) {
	f := newFixture(t)
	f.render(element.H("div", nil, "x"))

	f.host.ResetOps()
	f.render(element.H("div", nil, nil))
	assert.Equal(t, "<div></div>", f.html())
	assert.Equal(t, []memhost.OpKind{memhost.OpRemove}, opKinds(f.ops()))

	f.render(element.H("div", nil, false))
	assert.Equal(t, "<div></div>", f.html())
}

func TestUnsupportedChildIsADiagnostic(t *testing.T) {
	f := newFixture(t)
	f.render(element.H("div", nil, struct{}{}, "ok"))

	assert.Equal(t, "<div>ok</div>", f.html())
	require.NotEmpty(t, f.rec.renders)
	assert.Equal(t, 1, f.rec.renders[0].Diagnostics)
	assert.NoError(t, f.rec.renders[0].Err)
	assert.Empty(t, f.rec.errs)
}

func TestPropsUpdate(t *testing.T) {
	f := newFixture(t)
	f.render(element.H("a", element.Props{"href": "/x"}, "link"))

	f.host.ResetOps()
	f.render(element.H("a", element.Props{"href": "/y"}, "link"))
	f.assertOps(t, []memhost.Op{
		{Kind: memhost.OpUpdate, Child: "a#2", Detail: "href=/y"},
	})
	assert.Equal(t, `<a href="/y">link</a>`, f.html())
}

func TestFunctionPropsDoNotTriggerUpdates(t *testing.T) {
	f := newFixture(t)
	tree := func() *element.Element {
		return element.H("button", element.Props{"onclick": func() {}}, "go")
	}
	f.render(tree())

	f.host.ResetOps()
	f.render(tree())
	// should treat a fresh closure as the same prop
	assert.Empty(t, f.ops())
}

func TestDuplicateKeys(t *testing.T) {
	f := newFixture(t)
	item := func(key, text string) *element.Element {
		return element.H("li", element.Props{"key": key}, text)
	}

	f.render(element.H("ul", nil, item("a", "1"), item("a", "2")))
	assert.Equal(t, "<ul><li>1</li><li>2</li></ul>", f.html())
	require.NotEmpty(t, f.rec.renders)
	assert.Equal(t, 1, f.rec.renders[0].Diagnostics)

	f.render(element.H("ul", nil, item("b", "3"), item("c", "4")))

	// should remove both old siblings, including the one the repeated key shadowed
	assert.Equal(t, "<ul><li>3</li><li>4</li></ul>", f.html())
	assert.Equal(t, 5, f.host.Live().Cardinality())
	assert.Empty(t, f.rec.errs)

	last := f.rec.commits[len(f.rec.commits)-1]
	assert.Equal(t, 2, last.HostRemoved)
}

func TestDuplicateKeysKeepOneMatch(t *testing.T) {
	f := newFixture(t)
	item := func(key, text string) *element.Element {
		return element.H("li", element.Props{"key": key}, text)
	}

	f.render(element.H("ul", nil, item("a", "1"), item("a", "2")))
	f.render(element.H("ul", nil, []any{item("a", "x")}))

	// should reuse the first match and drop the other one
	assert.Equal(t, "<ul><li>x</li></ul>", f.html())
	assert.Equal(t, 3, f.host.Live().Cardinality())
}

type point struct {
	X, Y int
}

func TestPropsAreComparedByValue(t *testing.T) {
	f := newFixture(t)
	tree := func(x int) *element.Element {
		return element.H("svg", element.Props{
			"points": []*point{{X: x, Y: 1}, {X: 2, Y: 2}},
			"meta":   map[string]*point{"origin": {X: 0, Y: 0}},
		})
	}
	f.render(tree(1))

	f.host.ResetOps()
	f.render(tree(1))
	// should see through freshly allocated pointers
	assert.Empty(t, f.ops())

	f.render(tree(5))
	assert.Equal(t, []memhost.OpKind{memhost.OpUpdate}, opKinds(f.ops()))
}
