package wlclient

import (
	"fmt"

	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/wire"
)

const (
	opcodeRegistryBind = 0

	opcodeRegistryGlobal       = 0
	opcodeRegistryGlobalRemove = 1
)

// Global is one server-advertised capability: a numeric name plus the
// interface and maximum version it can be bound at.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// proxyFactory constructs an unbound proxy for a supported interface.
// The map doubles as the list of interface versions we speak.
type proxyFactory struct {
	version uint32
	create  func(c *Connection) Proxy
}

var factories = map[string]proxyFactory{
	"wl_compositor": {version: 4, create: func(c *Connection) Proxy { return newCompositor(c) }},
	"wl_seat":       {version: 7, create: func(c *Connection) Proxy { return newSeat(c) }},
	"wl_output":     {version: 4, create: func(c *Connection) Proxy { return newOutput(c) }},
}

// Registry tracks advertised globals and the proxies bound to them.
// A global name binds at most once; rebinding returns the cached proxy.
type Registry struct {
	BaseProxy

	globals map[uint32]Global
	order   []uint32
	bound   map[uint32]Proxy
}

func newRegistry(c *Connection) *Registry {
	r := &Registry{
		globals: make(map[uint32]Global),
		bound:   make(map[uint32]Proxy),
	}
	r.SetConnection(c)
	r.SetID(c.allocID())
	c.register(r)
	return r
}

func (r *Registry) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodeRegistryGlobal:
		name := e.Uint()
		iface := e.String()
		version := e.Uint()
		if _, seen := r.globals[name]; !seen {
			r.order = append(r.order, name)
		}
		r.globals[name] = Global{Name: name, Interface: iface, Version: version}
		logger.Debugf("global %d: %s v%d", name, iface, version)
	case opcodeRegistryGlobalRemove:
		name := e.Uint()
		delete(r.globals, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		// Any proxy bound to the global stays valid until released;
		// the server ignores requests to it in the meantime.
	}
}

// Globals returns the advertised globals in announcement order.
func (r *Registry) Globals() []Global {
	out := make([]Global, 0, len(r.order))
	for _, name := range r.order {
		if g, ok := r.globals[name]; ok {
			out = append(out, g)
		}
	}
	return out
}

// Bind claims the named global, constructing a typed proxy for it.
// Binding the same name again returns the proxy from the first call.
func (r *Registry) Bind(name uint32) (Proxy, error) {
	if p, ok := r.bound[name]; ok {
		return p, nil
	}
	g, ok := r.globals[name]
	if !ok {
		return nil, fmt.Errorf("%w: name %d", ErrNoSuchGlobal, name)
	}
	f, ok := factories[g.Interface]
	if !ok {
		return nil, &UnsupportedInterfaceError{Name: name, Interface: g.Interface}
	}
	version := f.version
	if g.Version < version {
		version = g.Version
	}
	c := r.Connection()
	p := f.create(c)
	req := wire.NewRequest(r.ID(), opcodeRegistryBind).
		PutUint(name).
		PutString(g.Interface).
		PutUint(version).
		PutNewID(p.ID())
	if err := c.queueRequest(req); err != nil {
		c.unregister(p.ID())
		return nil, err
	}
	r.bound[name] = p
	logger.Debugf("bound global %d (%s v%d) as object %d", name, g.Interface, version, p.ID())
	return p, nil
}

// BindFirst binds the first advertised global carrying the given
// interface.
func (r *Registry) BindFirst(iface string) (Proxy, error) {
	for _, name := range r.order {
		if g, ok := r.globals[name]; ok && g.Interface == iface {
			return r.Bind(name)
		}
	}
	return nil, fmt.Errorf("%w: interface %s", ErrNoSuchGlobal, iface)
}
