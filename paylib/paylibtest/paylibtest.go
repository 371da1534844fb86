// Package paylibtest provides an in-memory payment library for tests.
package paylibtest

import (
	"context"
	"sync"

	"github.com/fabriqs/paywidget/paylib"
)

// Library records every call the checkout makes against it.
// Zero value is a library that is not loaded yet and loads successfully.
type Library struct {
	mu sync.Mutex

	Present   bool
	LoadErr   error
	LoadGate  chan struct{} // when set, Load blocks until it is closed
	SubmitErr error
	Confirm   func(ctx context.Context, params paylib.ConfirmParams) (*paylib.ConfirmResult, error)

	Loads       int
	ScriptURLs  []string
	Keys        []string
	ElementsOps []paylib.ElementsOptions
	Updates     []paylib.ElementsOptions
	Mounts      []string
	Unmounts    int
	Submits     int
	Confirms    []paylib.ConfirmParams
}

var _ paylib.Loader = (*Library)(nil)

func (l *Library) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Present
}

func (l *Library) Load(ctx context.Context, scriptURL string) error {
	l.mu.Lock()
	l.Loads++
	l.ScriptURLs = append(l.ScriptURLs, scriptURL)
	gate := l.LoadGate
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LoadErr != nil {
		return l.LoadErr
	}
	l.Present = true
	return nil
}

func (l *Library) New(publishableKey string) (paylib.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Keys = append(l.Keys, publishableKey)
	return &client{lib: l}, nil
}

// Snapshot returns a copy of the recorded calls safe to inspect while the library is in use.
func (l *Library) Snapshot() Library {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Library{
		Present:     l.Present,
		Loads:       l.Loads,
		ScriptURLs:  append([]string(nil), l.ScriptURLs...),
		Keys:        append([]string(nil), l.Keys...),
		ElementsOps: append([]paylib.ElementsOptions(nil), l.ElementsOps...),
		Updates:     append([]paylib.ElementsOptions(nil), l.Updates...),
		Mounts:      append([]string(nil), l.Mounts...),
		Unmounts:    l.Unmounts,
		Submits:     l.Submits,
		Confirms:    append([]paylib.ConfirmParams(nil), l.Confirms...),
	}
}

type client struct {
	lib *Library
}

func (c *client) Elements(opts paylib.ElementsOptions) (paylib.Elements, error) {
	c.lib.mu.Lock()
	defer c.lib.mu.Unlock()
	c.lib.ElementsOps = append(c.lib.ElementsOps, opts)
	return &elements{lib: c.lib}, nil
}

func (c *client) ConfirmPayment(ctx context.Context, params paylib.ConfirmParams) (*paylib.ConfirmResult, error) {
	c.lib.mu.Lock()
	c.lib.Confirms = append(c.lib.Confirms, params)
	confirm := c.lib.Confirm
	c.lib.mu.Unlock()
	if confirm == nil {
		return &paylib.ConfirmResult{Status: "succeeded"}, nil
	}
	return confirm(ctx, params)
}

type elements struct {
	lib *Library
}

func (e *elements) Create(kind string) (paylib.Element, error) {
	return &element{lib: e.lib}, nil
}

func (e *elements) Update(opts paylib.ElementsOptions) error {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()
	e.lib.Updates = append(e.lib.Updates, opts)
	return nil
}

func (e *elements) Submit(ctx context.Context) error {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()
	e.lib.Submits++
	return e.lib.SubmitErr
}

type element struct {
	lib *Library
}

func (e *element) Mount(container string) error {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()
	e.lib.Mounts = append(e.lib.Mounts, container)
	return nil
}

func (e *element) Unmount() error {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()
	e.lib.Unmounts++
	return nil
}
