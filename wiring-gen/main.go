// main generates the default pin wiring of the ym2149 package.
//
// The wiring is described in wiring.json using Arduino pin names (D0..D13
// for the digital header, A0..A5 for the analog header) and is compiled
// into a Wiring literal so that no configuration is read on the device.
//
package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"text/template"
)

const outputTemplate = `//go:generate go run ../../wiring-gen/main.go ../../wiring-gen/wiring.json ./wiring.gen.go{{ printf "\n" }}//go:generate go fmt ./wiring.gen.go

// GENERATED FILE - Run "go generate ./..." to update

package ym2149

import "github.com/sema/ymbus/pkg/hal"

// DefaultWiring is generated from wiring.json
//
{{ range .Notes -}}
//   {{ . }}
{{ end -}}
var DefaultWiring = Wiring{
	Data: [8]hal.PinID{
		{{- range .DataPins }}
		{{ . }},
		{{- end }}
	},
	Clock: {{ .ClockPin }},
	BC1:   {{ .BC1Pin }},
	BDIR:  {{ .BDIRPin }},
}
`

// analogBase is the Arduino pin number of A0
const analogBase = 14

type wiring struct {
	Board string
	Data  []string
	Clock string
	BC1   string
	BDIR  string
	Notes []string

	DataPins []int `json:"-"`
	ClockPin int   `json:"-"`
	BC1Pin   int   `json:"-"`
	BDIRPin  int   `json:"-"`
}

func main() {
	if len(os.Args) < 3 {
		log.Printf("Usage: %s wiring.json output.go", os.Args[0])
		os.Exit(1)
	}

	wiringPath := os.Args[1]
	outputPath := os.Args[2]

	if !strings.HasSuffix(outputPath, ".go") {
		log.Println("Expected output file to have a .go extension")
		os.Exit(1)
	}

	log.Printf("Generating default wiring")
	log.Printf("Wiring: %s", wiringPath)
	log.Printf("Output: %s", outputPath)

	err := generate(wiringPath, outputPath)
	if err != nil {
		log.Panic(err)
	}

	log.Println("Done")
}

func generate(wiringPath, outputPath string) error {
	raw, err := ioutil.ReadFile(wiringPath)
	if err != nil {
		return err
	}

	var w wiring
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}

	if err := resolve(&w); err != nil {
		return err
	}

	tmpl, err := template.New("output").Parse(outputTemplate)
	if err != nil {
		return err
	}

	fp, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer fp.Close()

	log.Printf("Resolved %d pins for %s", len(w.DataPins)+3, w.Board)
	return tmpl.Execute(fp, w)
}

// resolve turns pin names into Arduino pin numbers and checks that every
// signal has its own pin
func resolve(w *wiring) error {
	if len(w.Data) != 8 {
		return fmt.Errorf("expected 8 data pins, got %d", len(w.Data))
	}

	seen := make(map[int]string)
	assign := func(signal, name string) (int, error) {
		if name == "" {
			return 0, fmt.Errorf("signal %s has no pin", signal)
		}
		pin, err := parsePin(name)
		if err != nil {
			return 0, err
		}
		if other, ok := seen[pin]; ok {
			return 0, fmt.Errorf("pin %s is used by both %s and %s", name, other, signal)
		}
		seen[pin] = signal
		return pin, nil
	}

	w.DataPins = nil
	for bit, name := range w.Data {
		pin, err := assign(fmt.Sprintf("DA%d", bit), name)
		if err != nil {
			return err
		}
		w.DataPins = append(w.DataPins, pin)
	}

	var err error
	if w.ClockPin, err = assign("CLOCK", w.Clock); err != nil {
		return err
	}
	if w.BC1Pin, err = assign("BC1", w.BC1); err != nil {
		return err
	}
	if w.BDIRPin, err = assign("BDIR", w.BDIR); err != nil {
		return err
	}
	return nil
}

// parsePin converts an Arduino pin name such as "D11" or "A2" to its pin
// number
func parsePin(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid pin name %q", name)
	}

	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid pin name %q: %s", name, err)
	}

	switch name[0] {
	case 'D':
		if n < 0 || n >= analogBase {
			return 0, fmt.Errorf("digital pin %q out of range", name)
		}
		return n, nil
	case 'A':
		if n < 0 || n > 5 {
			return 0, fmt.Errorf("analog pin %q out of range", name)
		}
		return analogBase + n, nil
	}
	return 0, fmt.Errorf("invalid pin name %q", name)
}
