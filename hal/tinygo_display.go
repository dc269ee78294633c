//go:build tinygo && baremetal

package hal

import (
	"machine"

	"tinygo.org/x/drivers/ili9341"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// LCD wiring: SPI1 on GP10 (SCK) / GP11 (SDO) / GP12 (SDI), control pins
// GP13 (CS), GP14 (DC), GP15 (RESET).

// initDisplayConsole brings up the ILI9341 and a tinyterm on it. Returns
// nil when the panel is absent so the HAL falls back to the UART console.
func initDisplayConsole() Console {
	err := machine.SPI1.Configure(machine.SPIConfig{
		SCK:       machine.GP10,
		SDO:       machine.GP11,
		SDI:       machine.GP12,
		Frequency: 40_000_000,
	})
	if err != nil {
		return nil
	}

	display := ili9341.NewSPI(machine.SPI1, machine.GP14, machine.GP13, machine.GP15)
	display.Configure(ili9341.Config{})

	term := tinyterm.NewTerminal(display)
	term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
	return &termConsole{term: term}
}

type termConsole struct {
	term *tinyterm.Terminal
}

func (c *termConsole) WriteLine(s string) {
	_, _ = c.term.Write([]byte(s))
	_, _ = c.term.Write([]byte{'\r', '\n'})
	_ = c.term.Display()
}

func (c *termConsole) Clear() {
	// tinyterm scrolls; a form feed restarts at the top of the panel.
	_, _ = c.term.Write([]byte("\x0c"))
}
