package feedback

import (
	"fmt"
	"strings"
	"time"
)

// HD44780 command constants for the PCF8574 I2C backpack, 4-bit mode.
const (
	lcdLine1     = 0x80
	lcdLine2     = 0xC0
	lcdBacklight = 0x08
	lcdEnable    = 0b00000100
	lcdModeCmd   = 0x00
	lcdModeChr   = 0x01

	lcdPulse = 500 * time.Microsecond
)

// wireTx is the slice of i2c.Dev the display needs.
type wireTx interface {
	Tx(w, r []byte) error
}

// LCD drives a 16x2 HD44780 character display behind a PCF8574 I2C
// expander, nibble by nibble.
type LCD struct {
	dev   wireTx
	width int
	sleep func(time.Duration)
}

// NewLCD wraps an I2C device for the display. width is the character count
// per line (16 on the reference hardware).
func NewLCD(dev wireTx, width int) *LCD {
	if width <= 0 {
		width = 16
	}
	return &LCD{dev: dev, width: width, sleep: time.Sleep}
}

// Init runs the standard HD44780 4-bit initialization sequence and clears
// the display.
func (l *LCD) Init() error {
	for _, cmd := range []byte{0x33, 0x32, 0x06, 0x0C, 0x28, 0x01} {
		if err := l.writeByte(cmd, lcdModeCmd); err != nil {
			return fmt.Errorf("initializing display: %w", err)
		}
	}
	l.sleep(5 * time.Millisecond)
	return nil
}

// Display writes both lines, padded or truncated to the display width.
func (l *LCD) Display(line1, line2 string) error {
	if err := l.writeLine(line1, lcdLine1); err != nil {
		return err
	}
	return l.writeLine(line2, lcdLine2)
}

func (l *LCD) writeLine(message string, line byte) error {
	if err := l.writeByte(line, lcdModeCmd); err != nil {
		return fmt.Errorf("selecting display line: %w", err)
	}
	if len(message) > l.width {
		message = message[:l.width]
	}
	message = message + strings.Repeat(" ", l.width-len(message))
	for _, ch := range []byte(message) {
		if err := l.writeByte(ch, lcdModeChr); err != nil {
			return fmt.Errorf("writing display character: %w", err)
		}
	}
	return nil
}

// writeByte sends one byte as two nibbles, strobing the enable line for
// each so the controller latches them.
func (l *LCD) writeByte(bits, mode byte) error {
	high := mode | (bits & 0xF0) | lcdBacklight
	low := mode | ((bits << 4) & 0xF0) | lcdBacklight

	for _, nibble := range []byte{high, low} {
		if err := l.tx(nibble); err != nil {
			return err
		}
		if err := l.toggleEnable(nibble); err != nil {
			return err
		}
	}
	return nil
}

func (l *LCD) toggleEnable(bits byte) error {
	l.sleep(lcdPulse)
	if err := l.tx(bits | lcdEnable); err != nil {
		return err
	}
	l.sleep(lcdPulse)
	if err := l.tx(bits &^ lcdEnable); err != nil {
		return err
	}
	l.sleep(lcdPulse)
	return nil
}

func (l *LCD) tx(b byte) error {
	return l.dev.Tx([]byte{b}, nil)
}
