package input

// VirtualPad is a Device whose state is set programmatically.
type VirtualPad struct {
	id       int
	name     string
	standard bool
	axes     []float64
	buttons  []bool
}

// NewVirtualPad returns a pad with 8 axes and 17 buttons, all at rest.
func NewVirtualPad(id int, name string, standard bool) *VirtualPad {
	return &VirtualPad{
		id:       id,
		name:     name,
		standard: standard,
		axes:     make([]float64, 8),
		buttons:  make([]bool, 17),
	}
}

func (p *VirtualPad) ID() int        { return p.id }
func (p *VirtualPad) Name() string   { return p.name }
func (p *VirtualPad) Standard() bool { return p.standard }

// SetButton sets button i, growing the button list if needed.
func (p *VirtualPad) SetButton(i int, pressed bool) {
	if i < 0 {
		return
	}
	for len(p.buttons) <= i {
		p.buttons = append(p.buttons, false)
	}
	p.buttons[i] = pressed
}

// SetAxis sets axis i, growing the axis list if needed.
func (p *VirtualPad) SetAxis(i int, v float64) {
	if i < 0 {
		return
	}
	for len(p.axes) <= i {
		p.axes = append(p.axes, 0)
	}
	p.axes[i] = v
}

// Read implements Device.
func (p *VirtualPad) Read(st *ControllerState) {
	st.Axes = append(st.Axes[:0], p.axes...)
	st.Buttons = append(st.Buttons[:0], p.buttons...)
}
