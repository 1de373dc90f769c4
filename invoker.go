package runtime

import (
	"context"
	"fmt"
	"reflect"

	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/pluginerr"
)

// Bundle pairs one plugin with one of its handlers, queued for invocation.
type Bundle struct {
	PluginName string
	Plugin     *plugin.Instance
	Handler    handler.Descriptor
}

// Result is the outcome of invoking one bundle: the handler's return value
// on success, or the last failure observed for it.
type Result struct {
	PluginName string
	Value      any
	Err        error
}

// Ok reports whether the bundle succeeded.
func (r Result) Ok() bool { return r.Err == nil }

// invokeFixedPoint drives a batch of bundles to a fixed point. Each round
// retries every still-pending bundle; a handler that succeeds may have
// published dependencies that unblock peers in the next round. A round that
// leaves the pending set the same size has stalled — the remaining bundles
// form an unsatisfiable (typically circular) dependency set, and their
// last-seen failures are committed.
//
// Results land at each bundle's original index regardless of the round it
// completed in. ctx is consulted only between rounds; the reflective call
// itself is the batch's only suspension point.
func (m *Manager) invokeFixedPoint(ctx context.Context, bundles []Bundle, scope dependency.Manager) []Result {
	if scope == nil {
		scope = dependency.Empty
	}
	done := make([]Result, len(bundles))
	type entry struct {
		b       Bundle
		idx     int
		lastErr error
	}
	pending := make([]entry, len(bundles))
	for i, b := range bundles {
		pending[i] = entry{b: b, idx: i}
	}
	for len(pending) > 0 {
		if err := context.Cause(ctx); err != nil {
			for _, e := range pending {
				done[e.idx] = Result{PluginName: e.b.PluginName, Err: err}
			}
			return done
		}
		next := pending[:0:0]
		for _, e := range pending {
			v, err := m.tryInvoke(e.b, scope)
			if err == nil {
				done[e.idx] = Result{PluginName: e.b.PluginName, Value: v}
				continue
			}
			e.lastErr = err
			next = append(next, e)
		}
		if len(next) == len(pending) {
			for _, e := range next {
				done[e.idx] = Result{PluginName: e.b.PluginName, Err: e.lastErr}
			}
			return done
		}
		pending = next
	}
	return done
}

// tryInvoke resolves the bundle's parameters against scope layered over the
// global manager, then calls the handler. Panics raised by the handler body
// and errors it returns are both captured as load failures so that peers in
// the batch keep running.
func (m *Manager) tryInvoke(b Bundle, scope dependency.Manager) (value any, err error) {
	params := b.Handler.Params()
	args := make([]reflect.Value, len(params))
	for i, p := range params {
		arg, rerr := m.resolveParam(p, scope)
		if rerr != nil {
			return nil, rerr
		}
		args[i] = arg
	}
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = pluginerr.LoadFailure(b.PluginName, fmt.Errorf("handler panic: %v", r))
		}
	}()
	out := b.Handler.Func().Call(args)
	for _, o := range out {
		if o.Type() == errType {
			if !o.IsNil() {
				return nil, pluginerr.LoadFailure(b.PluginName, o.Interface().(error))
			}
			continue
		}
		if value == nil {
			value = o.Interface()
		}
	}
	return value, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// resolveParam finds the argument for one declared parameter.
//
// Named parameters consult scope then the global manager and never fall
// through to class-based search: a hit whose value class is not assignable
// to the declared class is a hard mismatch. Unnamed parameters search by
// value class, scope first, and select the most recently registered match.
func (m *Manager) resolveParam(p handler.Param, scope dependency.Manager) (reflect.Value, error) {
	if p.Named() {
		d, ok := scope.Find(p.DepName)
		if !ok {
			d, ok = m.global.Find(p.DepName)
		}
		if !ok {
			return reflect.Value{}, pluginerr.DepNameNotFound(p.DepName)
		}
		if !d.ValueClass.AssignableTo(p.Class) {
			return reflect.Value{}, pluginerr.DepUnexpectedClass(p.DepName, p.Class, d.ValueClass)
		}
		return reflect.ValueOf(d.Value), nil
	}
	matches := scope.FindByValueClass(p.Class)
	if len(matches) == 0 {
		matches = m.global.FindByValueClass(p.Class)
	}
	if len(matches) == 0 {
		return reflect.Value{}, pluginerr.DepClassNotFound(p.Class)
	}
	return reflect.ValueOf(matches[len(matches)-1].Value), nil
}
