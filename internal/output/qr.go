package output

import (
	"io"
	"os"

	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
	"rsc.io/qr"
)

// QRConfig controls how an address is rendered as a terminal QR code.
type QRConfig struct {
	// Level is the QR error correction level.
	Level qr.Level
	// QuietZone is the number of blank modules framing the code.
	QuietZone int
	// HalfBlocks halves the vertical footprint using unicode half blocks.
	HalfBlocks bool
}

// DefaultQRConfig is tuned for scanning an address off a terminal: low
// error correction keeps the code small, and half blocks keep it on one
// screen.
func DefaultQRConfig() QRConfig {
	return QRConfig{
		Level:      qr.L,
		QuietZone:  1,
		HalfBlocks: true,
	}
}

// CanRenderQR reports whether w is an interactive terminal. QR codes are
// unreadable noise in pipes and log files, so rendering is gated on this.
func CanRenderQR(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd fits in int on supported platforms
}

// RenderQR writes data as a QR code when w is a terminal. On any other
// writer it silently produces nothing, so callers can request a QR
// unconditionally and still pipe output.
func RenderQR(w io.Writer, data string, cfg QRConfig) error {
	if !CanRenderQR(w) {
		return nil
	}

	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          cfg.Level,
		Writer:         w,
		QuietZone:      cfg.QuietZone,
		HalfBlocks:     cfg.HalfBlocks,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return nil
}
