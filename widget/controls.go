package widget

import "sync"

// Label, Button and Panel hold the visible state of the widget's controls.
// A host renderer reads them; nothing here draws anything.

type Label struct {
	mu      sync.RWMutex
	caption string
	visible bool
}

func NewLabel(caption string) *Label { return &Label{caption: caption, visible: true} }

func (l *Label) SetCaption(s string) {
	l.mu.Lock()
	l.caption = s
	l.mu.Unlock()
}

func (l *Label) Caption() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.caption
}

func (l *Label) SetVisible(v bool) {
	l.mu.Lock()
	l.visible = v
	l.mu.Unlock()
}

func (l *Label) Visible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visible
}

type Button struct {
	mu      sync.RWMutex
	caption string
	enabled bool
	visible bool
}

func NewButton(caption string, enabled, visible bool) *Button {
	return &Button{caption: caption, enabled: enabled, visible: visible}
}

func (b *Button) SetCaption(s string) {
	b.mu.Lock()
	b.caption = s
	b.mu.Unlock()
}

func (b *Button) SetEnabled(v bool) {
	b.mu.Lock()
	b.enabled = v
	b.mu.Unlock()
}

func (b *Button) SetVisible(v bool) {
	b.mu.Lock()
	b.visible = v
	b.mu.Unlock()
}

func (b *Button) View() ButtonView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ButtonView{Caption: b.caption, Enabled: b.enabled, Visible: b.visible}
}

type ButtonView struct {
	Caption string `json:"caption"`
	Enabled bool   `json:"enabled"`
	Visible bool   `json:"visible"`
}

type Panel struct {
	mu      sync.RWMutex
	visible bool
}

func (p *Panel) SetVisible(v bool) {
	p.mu.Lock()
	p.visible = v
	p.mu.Unlock()
}

func (p *Panel) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible
}
