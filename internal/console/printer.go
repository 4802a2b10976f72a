// internal/console/printer.go
package console

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/tamzrod/ibutton-cloner/internal/status"
)

var menu = []string{
	"===MENU===",
	"Enter 'S' to SHOW the active slot.",
	"Enter 'R' to READ FROM the tag into the active slot.",
	"Enter 'W' to WRITE TO the tag from the active slot.",
	"Enter 'E' to EDIT the active slot, then a line like 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07",
	"  (empty line keeps the stored code) and a line with the name (up to 8 characters).",
	"Enter 'C' to CLEAR the active slot.",
	"Enter 'D' to DUMP all slots.",
	"Enter 'L' to LIST the connected tag.",
	"Enter '|' to wait until a tag is detected (queue commands behind it).",
	"Enter 'A' to toggle ADVANCED mode.",
}

var advancedMenu = []string{
	"===ADVANCED===",
	"Enter 'M' then 0-F to select the active slot, 'L' to list, 'X' to cancel,",
	"  or 'WIPE' to clear every slot.",
	"Edit takes all 8 bytes, checksum included.",
}

// Printer writes rendered outcomes to the console.
type Printer struct {
	mu          sync.Mutex
	w           io.Writer
	eol         string
	interactive bool

	// writeFailed is set once the first write error was logged.
	writeFailed bool
}

// NewPrinter writes to w. eol is the line ending; interactive enables the menu.
func NewPrinter(w io.Writer, eol string, interactive bool) *Printer {
	if eol == "" {
		eol = "\n"
	}
	return &Printer{w: w, eol: eol, interactive: interactive}
}

// Report prints one outcome followed by a blank line.
func (p *Printer) Report(o status.Outcome) {
	p.print(append(status.Render(o), ""))
}

// Signal is a no-op: a text console has no indicator.
func (p *Printer) Signal(status.Signal) {}

// Menu prints the help text. Batch (non-interactive) input gets none.
func (p *Printer) Menu(advanced bool) {
	if !p.interactive {
		return
	}
	lines := append([]string{}, menu...)
	if advanced {
		lines = append(lines, advancedMenu...)
	}
	p.print(append(lines, ""))
}

// Dropped tells the user queued input was discarded after a desync.
func (p *Printer) Dropped(n int) {
	p.print([]string{
		fmt.Sprintf("[WARNING] Bad input, %d queued bytes dropped. Queued commands are lost.", n),
		"[WARNING] Session reset to its initial state.",
		"",
	})
}

func (p *Printer) print(lines []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := io.WriteString(p.w, strings.Join(lines, p.eol)+p.eol)
	if err != nil && !p.writeFailed {
		p.writeFailed = true
		log.Printf("console: write failed, output is being lost: %v", err)
	}
}
