package input

import "go.uber.org/zap"

// KeySink receives keyboard transitions.
type KeySink func(pressed bool, key string) error

// Keyboard forwards each key transition immediately. It keeps no state.
type Keyboard struct {
	sink KeySink
	log  *zap.Logger
}

// NewKeyboard returns a keyboard forwarding to sink.
func NewKeyboard(sink KeySink, log *zap.Logger) *Keyboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Keyboard{sink: sink, log: log}
}

// Down forwards a key press.
func (k *Keyboard) Down(key string) error {
	return k.forward(true, key)
}

// Up forwards a key release.
func (k *Keyboard) Up(key string) error {
	return k.forward(false, key)
}

func (k *Keyboard) forward(pressed bool, key string) error {
	k.log.Debug("key", zap.String("key", key), zap.Bool("pressed", pressed))
	return k.sink(pressed, key)
}
