package jshost

import (
	"math"
	"time"

	"github.com/dop251/goja"

	"github.com/entrhq/driftlens/pkg/instrument"
)

// wrappedProp marks functions installed by this package.
const wrappedProp = "__driftlensWrapped"

func rethrow(vm *goja.Runtime, err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex.Value())
	}
	panic(vm.NewGoError(err))
}

func isMarked(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	m := obj.Get(wrappedProp)
	return m != nil && m.ToBoolean()
}

func setMark(vm *goja.Runtime, v goja.Value, marked bool) {
	if obj, ok := v.(*goja.Object); ok {
		_ = obj.Set(wrappedProp, vm.ToValue(marked))
	}
}

func toDuration(v goja.Value) time.Duration {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	ms := v.ToFloat()
	if math.IsNaN(ms) || ms < 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// global is a function-valued property of the global object.
type global struct {
	vm   *goja.Runtime
	name string
}

func (g global) fn() (goja.Callable, bool) {
	return goja.AssertFunction(g.vm.Get(g.name))
}

func (g global) Wrapped() bool { return isMarked(g.vm.Get(g.name)) }

func (g global) MarkWrapped(v bool) { setMark(g.vm, g.vm.Get(g.name), v) }

// schedulerTarget exposes setTimeout or setInterval.
type schedulerTarget struct{ global }

func (t schedulerTarget) Lookup() (instrument.Scheduler[goja.Value], bool) {
	fn, ok := t.fn()
	if !ok {
		return nil, false
	}
	vm := t.vm
	return func(callback func(), delay time.Duration) goja.Value {
		v, err := fn(goja.Undefined(), vm.ToValue(callback), vm.ToValue(float64(delay)/float64(time.Millisecond)))
		if err != nil {
			rethrow(vm, err)
		}
		return v
	}, true
}

func (t schedulerTarget) Replace(s instrument.Scheduler[goja.Value]) {
	vm := t.vm
	_ = vm.Set(t.name, func(call goja.FunctionCall) goja.Value {
		cb, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("%s callback must be a function", t.name))
		}
		var extra []goja.Value
		if len(call.Arguments) > 2 {
			extra = append([]goja.Value(nil), call.Arguments[2:]...)
		}
		return s(func() {
			if _, err := cb(goja.Undefined(), extra...); err != nil {
				rethrow(vm, err)
			}
		}, toDuration(call.Argument(1)))
	})
}

// checkTarget exposes a global visibility check such as isOutOfViewport.
type checkTarget struct{ global }

func (t checkTarget) Lookup() (instrument.Check[goja.Value, goja.Value], bool) {
	fn, ok := t.fn()
	if !ok {
		return nil, false
	}
	vm := t.vm
	return func(elem goja.Value) goja.Value {
		v, err := fn(goja.Undefined(), elem)
		if err != nil {
			rethrow(vm, err)
		}
		return v
	}, true
}

func (t checkTarget) Replace(check instrument.Check[goja.Value, goja.Value]) {
	_ = t.vm.Set(t.name, func(call goja.FunctionCall) goja.Value {
		return check(call.Argument(0))
	})
}

// describeCheck renders a check call for the log with plain Go values.
func describeCheck(elem, result goja.Value) map[string]any {
	data := map[string]any{"result": exportValue(result)}
	if obj, ok := elem.(*goja.Object); ok {
		if id := obj.Get("id"); id != nil && !goja.IsUndefined(id) {
			data["elementId"] = id.String()
		}
	}
	return data
}

func exportValue(v goja.Value) any {
	if v == nil {
		return nil
	}
	return v.Export()
}

// methodTarget exposes a prototype method such as MonitorStream.prototype.start.
type methodTarget struct {
	vm     *goja.Runtime
	class  string
	method string
}

func (t methodTarget) prototype() (*goja.Object, bool) {
	ctor := t.vm.Get(t.class)
	if ctor == nil || goja.IsUndefined(ctor) || goja.IsNull(ctor) {
		return nil, false
	}
	proto := ctor.ToObject(t.vm).Get("prototype")
	if proto == nil || goja.IsUndefined(proto) || goja.IsNull(proto) {
		return nil, false
	}
	return proto.ToObject(t.vm), true
}

func (t methodTarget) current() goja.Value {
	proto, ok := t.prototype()
	if !ok {
		return nil
	}
	return proto.Get(t.method)
}

func (t methodTarget) Lookup() (instrument.StreamCall[goja.Value], bool) {
	fn, ok := goja.AssertFunction(t.current())
	if !ok {
		return nil, false
	}
	vm := t.vm
	return func(s instrument.Stream) goja.Value {
		st := s.(*stream)
		v, err := fn(st.obj, st.args...)
		if err != nil {
			rethrow(vm, err)
		}
		return v
	}, true
}

func (t methodTarget) Replace(call instrument.StreamCall[goja.Value]) {
	proto, ok := t.prototype()
	if !ok {
		return
	}
	vm := t.vm
	_ = proto.Set(t.method, func(fc goja.FunctionCall) goja.Value {
		return call(&stream{obj: fc.This.ToObject(vm), args: fc.Arguments})
	})
}

func (t methodTarget) Wrapped() bool { return isMarked(t.current()) }

func (t methodTarget) MarkWrapped(v bool) { setMark(t.vm, t.current(), v) }

// stream adapts a MonitorStream receiver.
type stream struct {
	obj  *goja.Object
	args []goja.Value
}

func (s *stream) StreamID() int {
	v := s.obj.Get("id")
	if v == nil {
		return 0
	}
	return int(v.ToInteger())
}

func (s *stream) field(name string) any {
	return exportValue(s.obj.Get(name))
}

func (s *stream) Attributes() map[string]any {
	return map[string]any{
		"player":          s.field("player"),
		"started":         s.field("started"),
		"Go2RTCEnabled":   s.field("Go2RTCEnabled"),
		"RTSP2WebEnabled": s.field("RTSP2WebEnabled"),
		"janusEnabled":    s.field("janusEnabled"),
	}
}

func (s *stream) ActivePlayer() string {
	v := s.obj.Get("activePlayer")
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
