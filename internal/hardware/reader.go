// Package hardware owns the device peripherals the session loop blocks on:
// the RFID proximity reader and the camera frame source.
package hardware

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"

	"facegate/internal/config"
)

// ErrReaderFailed marks a credential-reader hardware failure. The
// controller treats it as fatal for the process run; a misconfigured
// reader is not something to retry in-loop.
var ErrReaderFailed = errors.New("credential reader failed")

// CredentialReader blocks until a physical credential is presented.
type CredentialReader interface {
	// Read returns the credential ID of the next presented card. It blocks
	// until a card appears, the context is cancelled, or the hardware
	// fails (ErrReaderFailed).
	Read(ctx context.Context) (string, error)
	Close() error
}

// pollTimeout is how long each ReadUID attempt waits before the loop checks
// for cancellation.
const pollTimeout = 2 * time.Second

// RFIDReader reads card UIDs from an MFRC522 over SPI.
type RFIDReader struct {
	dev  *mfrc522.Dev
	port spi.PortCloser
}

// NewRFIDReader opens the SPI port and initializes the MFRC522. periph's
// host must be initialized before calling this.
func NewRFIDReader(cfg config.ReaderConfig) (*RFIDReader, error) {
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("opening SPI port: %w", err)
	}

	resetPin := gpioreg.ByName(cfg.ResetPin)
	if resetPin == nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset pin %q not found", cfg.ResetPin)
	}
	irqPin := gpioreg.ByName(cfg.IRQPin)
	if irqPin == nil {
		_ = port.Close()
		return nil, fmt.Errorf("IRQ pin %q not found", cfg.IRQPin)
	}

	dev, err := mfrc522.NewSPI(port, resetPin, irqPin)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("initializing MFRC522: %w", err)
	}
	if cfg.AntennaGain > 0 {
		if err := dev.SetAntennaGain(cfg.AntennaGain); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("setting antenna gain: %w", err)
		}
	}

	return &RFIDReader{dev: dev, port: port}, nil
}

// Read polls for a card in short rounds so cancellation is honored between
// attempts. A round that times out just means no card was presented yet.
func (r *RFIDReader) Read(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		uid, err := r.dev.ReadUID(pollTimeout)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrReaderFailed, err)
		}
		return CredentialFromUID(uid), nil
	}
}

func (r *RFIDReader) Close() error {
	if err := r.dev.Halt(); err != nil {
		_ = r.port.Close()
		return fmt.Errorf("halting MFRC522: %w", err)
	}
	return r.port.Close()
}

// isTimeout reports whether a ReadUID error only means "no card yet".
// The driver does not expose a sentinel for this.
func isTimeout(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// CredentialFromUID converts a raw card UID to the decimal credential
// string used for enrollment directories, matching the reference reader's
// numeric IDs.
func CredentialFromUID(uid []byte) string {
	if len(uid) == 0 {
		return ""
	}
	padded := make([]byte, 8)
	copy(padded[8-min(len(uid), 8):], uid[:min(len(uid), 8)])
	return strconv.FormatUint(binary.BigEndian.Uint64(padded), 10)
}
