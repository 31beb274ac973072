package jshost

import (
	"strconv"

	"github.com/dop251/goja"

	"github.com/entrhq/driftlens/pkg/instrument"
)

// windowState is the scroll position and size reported by the page.
type windowState struct {
	scrollY       float64
	width, height float64
}

// pageViewport reads geometry from the page's monitors array.
type pageViewport struct {
	vm  *goja.Runtime
	win *windowState
}

func (v pageViewport) ScrollY() float64 { return v.win.scrollY }

func (v pageViewport) Size() (float64, float64) { return v.win.width, v.win.height }

func (v pageViewport) Monitors() ([]instrument.Monitor, bool) {
	val := v.vm.Get("monitors")
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, false
	}
	arr := val.ToObject(v.vm)
	n := int(arr.Get("length").ToInteger())
	out := make([]instrument.Monitor, 0, n)
	for i := 0; i < n; i++ {
		item := arr.Get(strconv.Itoa(i))
		if obj, ok := item.(*goja.Object); ok {
			out = append(out, monitor{vm: v.vm, obj: obj})
		}
	}
	return out, true
}

// monitor adapts one entry of the monitors array. Bounds come from
// getElement().getBoundingClientRect().
type monitor struct {
	vm  *goja.Runtime
	obj *goja.Object
}

func (m monitor) MonitorID() int {
	id := m.obj.Get("id")
	if id == nil {
		return 0
	}
	return int(id.ToInteger())
}

func (m monitor) Bounds() (instrument.Rect, bool) {
	getElement, ok := goja.AssertFunction(m.obj.Get("getElement"))
	if !ok {
		return instrument.Rect{}, false
	}
	el, err := getElement(m.obj)
	if err != nil || goja.IsUndefined(el) || goja.IsNull(el) {
		return instrument.Rect{}, false
	}
	elObj := el.ToObject(m.vm)
	getRect, ok := goja.AssertFunction(elObj.Get("getBoundingClientRect"))
	if !ok {
		return instrument.Rect{}, false
	}
	rv, err := getRect(elObj)
	if err != nil {
		return instrument.Rect{}, false
	}
	r := rv.ToObject(m.vm)
	num := func(name string) float64 {
		if v := r.Get(name); v != nil {
			return v.ToFloat()
		}
		return 0
	}
	return instrument.Rect{
		Top:    num("top"),
		Bottom: num("bottom"),
		Left:   num("left"),
		Right:  num("right"),
	}, true
}
