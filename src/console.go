package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Diagnostic output to a serial port or a pseudo terminal.
 *
 * Description:	The board printed its diagnostics on a USB serial
 *		console.  On Linux the same lines can go to a real
 *		serial port (a USB-serial adapter to another machine)
 *		or to a pseudo terminal that a local program such as
 *		screen or minicom can open.
 *
 *		If nobody reads the pseudo terminal its buffer fills and
 *		writes block.  Both are therefore added to the
 *		diagnostic sink as queued writers.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"github.com/pkg/term"
)

type ConsoleConfig struct {
	Serial string `yaml:"serial"` // Device, e.g. /dev/ttyUSB0.
	Baud   int    `yaml:"baud"`   // 0 leaves the speed alone.
	PTY    bool   `yaml:"pty"`
}

// OpenSerialConsole opens devicename raw at baud.
func OpenSerialConsole(devicename string, baud int) (*term.Term, error) {
	var fd, err = term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", devicename, err)
	}

	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400:
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close() //nolint:gosec

			return nil, fmt.Errorf("serial port %s speed %d: %w", devicename, baud, err)
		}
	default:
		fd.Close() //nolint:gosec

		return nil, fmt.Errorf("serial port %s: unsupported speed %d", devicename, baud)
	}

	return fd, nil
}

// PTYConsole is the master side of a pseudo terminal.  Clients open
// Name().
type PTYConsole struct {
	master *os.File
	slave  *os.File
}

func OpenPTYConsole() (*PTYConsole, error) {
	var ptmx, pts, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not create pseudo terminal: %w", err)
	}

	return &PTYConsole{master: ptmx, slave: pts}, nil
}

// Name is the path of the terminal to open.
func (p *PTYConsole) Name() string {
	return p.slave.Name()
}

func (p *PTYConsole) Write(b []byte) (int, error) {
	return p.master.Write(b)
}

func (p *PTYConsole) Close() error {
	p.slave.Close() //nolint:gosec

	return p.master.Close()
}
