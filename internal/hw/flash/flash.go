package flash

import (
	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/cjeanneret/snapcam/internal/hw/gpio"
)

// LED drives the illumination output through a GPIO pin.
// The LED is lit while the pin is HIGH.
type LED struct {
	gpio gpio.Driver
	pin  int
}

// New configures pin as an output and switches the LED off.
func New(g gpio.Driver, pin int) (*LED, error) {
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		return nil, err
	}
	if err := g.WritePin(pin, gpio.Low); err != nil {
		return nil, err
	}
	return &LED{gpio: g, pin: pin}, nil
}

// On drives the pin HIGH.
func (l *LED) On() error {
	debug.Verbose("Flash: on (pin %d -> HIGH)", l.pin)
	return l.gpio.WritePin(l.pin, gpio.High)
}

// Off drives the pin LOW.
func (l *LED) Off() error {
	debug.Verbose("Flash: off (pin %d -> LOW)", l.pin)
	return l.gpio.WritePin(l.pin, gpio.Low)
}
