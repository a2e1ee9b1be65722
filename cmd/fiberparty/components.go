package main

import (
	"fmt"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/scenario"
)

// builtinComponents are the components scenario files can refer to by name.
func builtinComponents() scenario.Components {
	list := fiber.NewComponent("List", func(h *fiber.Hooks, props element.Props) any {
		items, _ := props["items"].([]any)
		children := make([]any, 0, len(items))
		for _, item := range items {
			label := fmt.Sprint(item)
			children = append(children, element.H("li", element.Props{"key": label}, label))
		}
		return element.H("ul", element.Props{"class": props["class"]}, children)
	})

	// Counter keeps the start value of its first render, later start props
	// are ignored because the state cell survives.
	counter := fiber.NewComponent("Counter", func(h *fiber.Hooks, props element.Props) any {
		start, _ := props["start"].(int)
		count, _ := fiber.UseState(h, start)
		return element.H("output", element.Props{"value": count}, count)
	})

	return scenario.Components{
		"Counter": counter,
		"List":    list,
	}
}
