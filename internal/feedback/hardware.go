package feedback

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"

	"facegate/internal/config"
)

// outPin is the slice of gpio.PinIO the sink drives.
type outPin interface {
	Out(l gpio.Level) error
}

// Hardware is the real Sink: LCD text plus buzzer and LED pulses. All
// methods are best-effort; bus errors are logged and swallowed, and every
// pulse returns its pin to rest before the method returns.
type Hardware struct {
	lcd    *LCD
	buzzer outPin
	green  outPin
	red    outPin
	logger *slog.Logger
	sleep  func(time.Duration)

	bus i2c.BusCloser
}

// NewHardware opens the I2C display and GPIO pins described by the config.
// periph's host must be initialized before calling this.
func NewHardware(cfg *config.Config, logger *slog.Logger) (*Hardware, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bus, err := i2creg.Open(cfg.Display.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("opening I2C bus: %w", err)
	}

	lcd := NewLCD(&i2c.Dev{Addr: cfg.Display.Addr, Bus: bus}, cfg.Display.Width)
	if err := lcd.Init(); err != nil {
		_ = bus.Close()
		return nil, err
	}

	h := &Hardware{
		lcd:    lcd,
		logger: logger,
		sleep:  time.Sleep,
		bus:    bus,
	}

	for _, p := range []struct {
		name string
		dst  *outPin
	}{
		{cfg.Actuators.BuzzerPin, &h.buzzer},
		{cfg.Actuators.GreenLEDPin, &h.green},
		{cfg.Actuators.RedLEDPin, &h.red},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			_ = bus.Close()
			return nil, fmt.Errorf("GPIO pin %q not found", p.name)
		}
		if err := pin.Out(gpio.Low); err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("resetting pin %q: %w", p.name, err)
		}
		*p.dst = pin
	}

	return h, nil
}

func (h *Hardware) Show(e Event) {
	h.display(Lines(e))

	switch e {
	case EventLimitReached:
		// Triple long beep, no LED.
		for i := 0; i < 3; i++ {
			h.pulse(h.buzzer, 700*time.Millisecond)
			h.sleep(300 * time.Millisecond)
		}
	case EventUnknownFace:
		// Double short beep, then the red LED held.
		for i := 0; i < 2; i++ {
			h.pulse(h.buzzer, 200*time.Millisecond)
			h.sleep(200 * time.Millisecond)
		}
		h.pulse(h.red, 3*time.Second)
	}
}

func (h *Hardware) ShowMatched(displayName string) {
	h.display(MatchedLines(displayName))

	// Short beep, green LED held while the welcome screen shows.
	h.set(h.green, gpio.High)
	h.pulse(h.buzzer, 200*time.Millisecond)
	h.sleep(3 * time.Second)
	h.set(h.green, gpio.Low)
}

// Close forces every actuator low and leaves the idle banner on screen.
func (h *Hardware) Close() error {
	h.set(h.buzzer, gpio.Low)
	h.set(h.green, gpio.Low)
	h.set(h.red, gpio.Low)
	h.display(Lines(EventShutdown))
	if h.bus != nil {
		return h.bus.Close()
	}
	return nil
}

func (h *Hardware) display(line1, line2 string) {
	if err := h.lcd.Display(line1, line2); err != nil {
		h.logger.Warn("display write failed", "error", err)
	}
}

// pulse holds a pin high for d, guaranteeing the trailing low write even if
// the high write failed.
func (h *Hardware) pulse(pin outPin, d time.Duration) {
	defer h.set(pin, gpio.Low)
	h.set(pin, gpio.High)
	h.sleep(d)
}

func (h *Hardware) set(pin outPin, level gpio.Level) {
	if pin == nil {
		return
	}
	if err := pin.Out(level); err != nil {
		h.logger.Warn("GPIO write failed", "error", err)
	}
}
