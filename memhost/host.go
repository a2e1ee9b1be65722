package memhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/scheduler"
)

var (
	ErrNotInstance = errors.New("not a memhost instance")
	ErrNotChild    = errors.New("not a child of container")
	ErrReleased    = errors.New("instance already released")
)

type OpKind string

const (
	OpCreate        OpKind = "CREATE"
	OpCreateText    OpKind = "CREATE_TEXT"
	OpAppendInitial OpKind = "APPEND_INITIAL"
	OpAppend        OpKind = "APPEND"
	OpInsert        OpKind = "INSERT"
	OpRemove        OpKind = "REMOVE"
	OpUpdate        OpKind = "UPDATE"
	OpUpdateText    OpKind = "UPDATE_TEXT"
)

// Op is one recorded host mutation. Instances are identified by their String
// form so logs stay comparable across runs.
type Op struct {
	Kind   OpKind
	Parent string
	Child  string
	Before string
	Detail string
}

func (op Op) String() string {
	var sb strings.Builder
	sb.WriteString(string(op.Kind))
	sb.WriteString(" ")
	sb.WriteString(op.Child)
	if op.Parent != "" {
		sb.WriteString(" -> ")
		sb.WriteString(op.Parent)
	}
	if op.Before != "" {
		sb.WriteString(" before ")
		sb.WriteString(op.Before)
	}
	if op.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(op.Detail)
		sb.WriteString(")")
	}
	return sb.String()
}

// Host is an in-memory implementation of the reconciler host interface. Its
// scheduling runs on an embedded scheduler.Loop, so nothing happens until the
// loop is drained.
type Host struct {
	*scheduler.Loop

	logger *slog.Logger
	nextID int
	ops    []Op
	live   mapset.Set[*Instance]
	fail   map[OpKind]error
}

type Option func(h *Host)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithLoop(l *scheduler.Loop) Option {
	return func(h *Host) {
		if l != nil {
			h.Loop = l
		}
	}
}

func New(opts ...Option) *Host {
	h := &Host{
		logger: slog.Default().With(slog.String("subsystem", "memhost")),
		live:   mapset.NewThreadUnsafeSet[*Instance](),
		fail:   map[OpKind]error{},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.Loop == nil {
		h.Loop = scheduler.New(scheduler.WithLogger(h.logger))
	}
	return h
}

// NewContainer returns an empty container to render into.
func (h *Host) NewContainer() *Instance {
	return &Instance{Tag: containerTag}
}

// FailNext makes the next operation of kind return err.
func (h *Host) FailNext(kind OpKind, err error) {
	h.fail[kind] = err
}

// Ops returns the operations recorded since the last reset.
func (h *Host) Ops() []Op {
	return slices.Clone(h.ops)
}

func (h *Host) ResetOps() {
	h.ops = h.ops[:0]
}

// Live returns the instances created and not removed since.
func (h *Host) Live() mapset.Set[*Instance] {
	return h.live.Clone()
}

func (h *Host) record(op Op) {
	h.ops = append(h.ops, op)
	if h.logger.Enabled(context.Background(), slog.LevelDebug) {
		h.logger.Debug("host op", slog.String("op", op.String()))
	}
}

func (h *Host) injected(kind OpKind) error {
	err, ok := h.fail[kind]
	if !ok {
		return nil
	}
	delete(h.fail, kind)
	return err
}

func (h *Host) CreateInstance(tag string, props element.Props) (any, error) {
	if err := h.injected(OpCreate); err != nil {
		return nil, err
	}
	h.nextID++
	inst := &Instance{
		ID:    h.nextID,
		Tag:   tag,
		Props: attributes(props),
	}
	h.live.Add(inst)
	h.record(Op{Kind: OpCreate, Child: inst.String(), Detail: formatAttributes(inst.Props)})
	return inst, nil
}

func (h *Host) CreateTextInstance(text string) (any, error) {
	if err := h.injected(OpCreateText); err != nil {
		return nil, err
	}
	h.nextID++
	inst := &Instance{
		ID:   h.nextID,
		Text: text,
	}
	h.live.Add(inst)
	h.record(Op{Kind: OpCreateText, Child: inst.String()})
	return inst, nil
}

func (h *Host) AppendInitialChild(parent, child any) error {
	if err := h.injected(OpAppendInitial); err != nil {
		return err
	}
	p, c, err := h.pair(parent, child)
	if err != nil {
		return err
	}
	h.detachFromParent(c)
	p.insert(c, len(p.Children))
	h.record(Op{Kind: OpAppendInitial, Parent: p.String(), Child: c.String()})
	return nil
}

func (h *Host) AppendChildToContainer(child, container any) error {
	if err := h.injected(OpAppend); err != nil {
		return err
	}
	p, c, err := h.pair(container, child)
	if err != nil {
		return err
	}
	h.detachFromParent(c)
	p.insert(c, len(p.Children))
	h.record(Op{Kind: OpAppend, Parent: p.String(), Child: c.String()})
	return nil
}

// InsertChildToContainer moves child right before before. Moving an attached
// child detaches it from its current position first, like the DOM does.
func (h *Host) InsertChildToContainer(child, container, before any) error {
	if err := h.injected(OpInsert); err != nil {
		return err
	}
	p, c, err := h.pair(container, child)
	if err != nil {
		return err
	}
	b, ok := before.(*Instance)
	if !ok {
		return fmt.Errorf("insert before %T: %w", before, ErrNotInstance)
	}
	if b.Parent != p {
		return fmt.Errorf("insert %s before %s in %s: %w", c, b, p, ErrNotChild)
	}
	h.detachFromParent(c)
	p.insert(c, p.indexOf(b))
	h.record(Op{Kind: OpInsert, Parent: p.String(), Child: c.String(), Before: b.String()})
	return nil
}

// RemoveChild detaches child from container and releases its whole subtree.
func (h *Host) RemoveChild(child, container any) error {
	if err := h.injected(OpRemove); err != nil {
		return err
	}
	p, c, err := h.pair(container, child)
	if err != nil {
		return err
	}
	if !p.remove(c) {
		return fmt.Errorf("remove %s from %s: %w", c, p, ErrNotChild)
	}
	c.walk(func(n *Instance) {
		h.live.Remove(n)
	})
	h.record(Op{Kind: OpRemove, Parent: p.String(), Child: c.String()})
	return nil
}

func (h *Host) CommitUpdate(instance any, tag string, oldProps, newProps element.Props) error {
	if err := h.injected(OpUpdate); err != nil {
		return err
	}
	inst, err := h.instance(instance)
	if err != nil {
		return err
	}
	if inst.Tag != tag {
		return fmt.Errorf("update %s as %q: %w", inst, tag, ErrNotInstance)
	}
	next := attributes(newProps)
	h.record(Op{Kind: OpUpdate, Child: inst.String(), Detail: diffAttributes(attributes(oldProps), next)})
	inst.Props = next
	return nil
}

func (h *Host) CommitTextUpdate(instance any, oldText, newText string) error {
	if err := h.injected(OpUpdateText); err != nil {
		return err
	}
	inst, err := h.instance(instance)
	if err != nil {
		return err
	}
	if !inst.IsText() {
		return fmt.Errorf("text update on %s: %w", inst, ErrNotInstance)
	}
	inst.Text = newText
	h.record(Op{Kind: OpUpdateText, Child: inst.String(), Detail: fmt.Sprintf("%q -> %q", oldText, newText)})
	return nil
}

func (h *Host) instance(v any) (*Instance, error) {
	inst, ok := v.(*Instance)
	if !ok || inst == nil {
		return nil, fmt.Errorf("%T: %w", v, ErrNotInstance)
	}
	if !inst.IsContainer() && inst.ID > 0 && !h.live.Contains(inst) {
		return nil, fmt.Errorf("%s: %w", inst, ErrReleased)
	}
	return inst, nil
}

func (h *Host) pair(parent, child any) (*Instance, *Instance, error) {
	p, err := h.instance(parent)
	if err != nil {
		return nil, nil, fmt.Errorf("parent: %w", err)
	}
	if p.IsText() {
		return nil, nil, fmt.Errorf("parent %s is a text node: %w", p, ErrNotInstance)
	}
	c, err := h.instance(child)
	if err != nil {
		return nil, nil, fmt.Errorf("child: %w", err)
	}
	return p, c, nil
}

func (h *Host) detachFromParent(c *Instance) {
	if c.Parent != nil {
		c.Parent.remove(c)
	}
}

func formatAttributes(props element.Props) string {
	keys := slices.Sorted(maps.Keys(props))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, props[k]))
	}
	return strings.Join(parts, " ")
}

func diffAttributes(prev, next element.Props) string {
	keys := map[string]struct{}{}
	for k := range prev {
		keys[k] = struct{}{}
	}
	for k := range next {
		keys[k] = struct{}{}
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		before, hadBefore := prev[k]
		after, hasAfter := next[k]
		switch {
		case !hadBefore:
			parts = append(parts, fmt.Sprintf("+%s=%v", k, after))
		case !hasAfter:
			parts = append(parts, fmt.Sprintf("-%s", k))
		case fmt.Sprint(before) != fmt.Sprint(after):
			parts = append(parts, fmt.Sprintf("%s=%v", k, after))
		}
	}
	return strings.Join(parts, " ")
}
