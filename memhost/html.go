package memhost

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/valyala/quicktemplate"
)

var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true, "link": true,
}

// HTML serializes the children of container. Attribute values and text are
// escaped; attributes are written in key order.
func HTML(container *Instance) string {
	var sb strings.Builder
	qw := quicktemplate.AcquireWriter(&sb)
	defer quicktemplate.ReleaseWriter(qw)

	for _, c := range container.Children {
		writeInstance(qw, c)
	}
	return sb.String()
}

func writeInstance(qw *quicktemplate.Writer, inst *Instance) {
	if inst.IsText() {
		qw.E().S(inst.Text)
		return
	}

	qw.N().S("<")
	qw.N().S(inst.Tag)
	for _, k := range slices.Sorted(maps.Keys(inst.Props)) {
		v := inst.Props[k]
		if b, ok := v.(bool); ok {
			if b {
				qw.N().S(" ")
				qw.N().S(k)
			}
			continue
		}
		qw.N().S(" ")
		qw.N().S(k)
		qw.N().S(`="`)
		qw.E().S(fmt.Sprint(v))
		qw.N().S(`"`)
	}
	qw.N().S(">")
	if voidTags[inst.Tag] && len(inst.Children) == 0 {
		return
	}

	for _, c := range inst.Children {
		writeInstance(qw, c)
	}
	qw.N().S("</")
	qw.N().S(inst.Tag)
	qw.N().S(">")
}
