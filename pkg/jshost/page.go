package jshost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	"github.com/entrhq/driftlens/pkg/capture"
	"github.com/entrhq/driftlens/pkg/config"
	"github.com/entrhq/driftlens/pkg/environment"
	"github.com/entrhq/driftlens/pkg/instrument"
	"github.com/entrhq/driftlens/pkg/types"
)

// Default window size reported before the script sends a resize.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Page is an instrumented JavaScript page.
type Page struct {
	loop    *eventloop.EventLoop
	session *instrument.Session
	win     *windowState
	scroll  *instrument.ScrollTracker
	nodes   map[string]*instrument.MediaNode
	started bool
}

// New creates a page whose session runs on the page's event loop. Session
// options are applied after the loop host, so tests may override it.
func New(platform environment.Platform, cfg config.Instrumentation, opts ...instrument.Option) *Page {
	loop := eventloop.NewEventLoop(eventloop.EnableConsole(false))
	p := &Page{
		loop:  loop,
		win:   &windowState{width: DefaultWidth, height: DefaultHeight},
		nodes: make(map[string]*instrument.MediaNode),
	}
	opts = append([]instrument.Option{instrument.WithHost(loopHost{loop: loop})}, opts...)
	p.session = instrument.NewSession(platform, cfg, opts...)
	return p
}

// Session returns the instrumentation session.
func (p *Page) Session() *instrument.Session { return p.session }

// Start runs the event loop in the background and installs every wrapper.
func (p *Page) Start() error {
	if p.started {
		return nil
	}
	p.started = true
	p.loop.Start()

	errc := make(chan error, 1)
	p.loop.RunOnLoop(func(vm *goja.Runtime) {
		errc <- p.bind(vm)
	})
	return <-errc
}

// Stop halts the event loop. Pending callbacks are dropped.
func (p *Page) Stop() {
	if p.started {
		p.loop.Stop()
		p.started = false
	}
}

// Eval runs script on the loop and returns its exported completion value.
// The page must be started.
func (p *Page) Eval(script string) (any, error) {
	if !p.started {
		return nil, errors.New("page not started")
	}
	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	p.loop.RunOnLoop(func(vm *goja.Runtime) {
		v, err := vm.RunString(script)
		if err != nil {
			ch <- result{err: fmt.Errorf("script failed: %w", err)}
			return
		}
		ch <- result{v: exportValue(v)}
	})
	r := <-ch
	return r.v, r.err
}

// Run starts the page, evaluates script and keeps the loop running until
// ctx is done.
func (p *Page) Run(ctx context.Context, script string) error {
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Stop()

	if _, err := p.Eval(script); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (p *Page) bind(vm *goja.Runtime) error {
	s := p.session
	if err := vm.Set("window", vm.GlobalObject()); err != nil {
		return err
	}
	p.syncWindow(vm)

	instrument.InstallTimers[goja.Value](s,
		schedulerTarget{global{vm: vm, name: "setTimeout"}},
		schedulerTarget{global{vm: vm, name: "setInterval"}},
	)
	p.scroll, _ = instrument.InstallScroll(s, pageViewport{vm: vm, win: p.win})
	instrument.InstallViewport[goja.Value, goja.Value](s, checkTarget{global{vm: vm, name: "isOutOfViewport"}}, describeCheck)
	instrument.InstallStreams[goja.Value](s,
		methodTarget{vm: vm, class: "MonitorStream", method: "start"},
		methodTarget{vm: vm, class: "MonitorStream", method: "stop"},
	)

	return vm.Set("DriftLens", p.api(vm))
}

func (p *Page) syncWindow(vm *goja.Runtime) {
	_ = vm.Set("scrollY", p.win.scrollY)
	_ = vm.Set("innerWidth", p.win.width)
	_ = vm.Set("innerHeight", p.win.height)
}

func optionalString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// toJS converts v to a plain JS value through its JSON form so field names
// match the artifact format.
func toJS(vm *goja.Runtime, v any) goja.Value {
	data, err := json.Marshal(v)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		panic(vm.NewGoError(err))
	}
	return vm.ToValue(plain)
}

// api builds the DriftLens object exposed to scripts.
func (p *Page) api(vm *goja.Runtime) *goja.Object {
	s := p.session
	obj := vm.NewObject()
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = obj.Set(name, fn)
	}

	_ = obj.Set("sessionId", s.ID())
	_ = obj.Set("browserInfo", toJS(vm, s.Descriptor()))

	set("appendEvent", func(call goja.FunctionCall) goja.Value {
		var data map[string]any
		if o, ok := call.Argument(2).(*goja.Object); ok {
			data, _ = o.Export().(map[string]any)
		}
		s.AppendEvent(types.Category(call.Argument(0).String()), call.Argument(1).String(), data)
		return goja.Undefined()
	})

	set("exportCapture", func(goja.FunctionCall) goja.Value {
		return toJS(vm, s.ExportCapture())
	})

	set("downloadCapture", func(goja.FunctionCall) goja.Value {
		path, err := s.DownloadCapture()
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(path)
	})

	set("getStoredCapture", func(goja.FunctionCall) goja.Value {
		c, err := s.StoredCapture()
		if errors.Is(err, instrument.ErrNoStore) || errors.Is(err, capture.ErrNotFound) {
			return goja.Null()
		}
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return toJS(vm, c)
	})

	set("notifyScroll", func(call goja.FunctionCall) goja.Value {
		p.win.scrollY = call.Argument(0).ToFloat()
		p.syncWindow(vm)
		eventType := optionalString(call.Argument(1))
		if eventType == "" {
			eventType = "scroll"
		}
		p.scroll.OnScroll(eventType)
		return goja.Undefined()
	})

	set("notifyScrollEnd", func(call goja.FunctionCall) goja.Value {
		p.scroll.OnScrollEnd(optionalString(call.Argument(0)))
		return goja.Undefined()
	})

	set("notifyResize", func(call goja.FunctionCall) goja.Value {
		p.win.width = call.Argument(0).ToFloat()
		p.win.height = call.Argument(1).ToFloat()
		p.syncWindow(vm)
		p.scroll.OnResize(p.win.width, p.win.height)
		return goja.Undefined()
	})

	set("insertHTML", func(call goja.FunctionCall) goja.Value {
		nodes, err := instrument.ParseMediaFragment(strings.NewReader(call.Argument(0).String()))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		for _, n := range nodes {
			if id := n.ID(); id != "" {
				p.nodes[id] = n
			}
		}
		return vm.ToValue(s.ObserveMutation(instrument.MediaElements(nodes)))
	})

	set("dispatchMediaEvent", func(call goja.FunctionCall) goja.Value {
		n, ok := p.nodes[call.Argument(0).String()]
		if !ok {
			return vm.ToValue(0)
		}
		if len(call.Arguments) > 2 {
			n.SetPlayback(call.Argument(2).ToFloat(), int(call.Argument(3).ToInteger()))
		}
		return vm.ToValue(n.Dispatch(call.Argument(1).String()))
	})

	set("mark", func(call goja.FunctionCall) goja.Value {
		s.Mark(call.Argument(0).String())
		return goja.Undefined()
	})

	set("measure", func(call goja.FunctionCall) goja.Value {
		d, ok := s.Measure(call.Argument(0).String(), call.Argument(1).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(float64(d.Microseconds()) / 1000)
	})

	set("uninstall", func(goja.FunctionCall) goja.Value {
		s.Uninstall()
		return goja.Undefined()
	})

	return obj
}
