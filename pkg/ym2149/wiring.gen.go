//go:generate go run ../../wiring-gen/main.go ../../wiring-gen/wiring.json ./wiring.gen.go
//go:generate go fmt ./wiring.gen.go

// GENERATED FILE - Run "go generate ./..." to update

package ym2149

import "github.com/sema/ymbus/pkg/hal"

// DefaultWiring is generated from wiring.json
//
//   D2 .. D9  connect to DA0 .. DA7
//   D11       connects to CLOCK
//   A3        connects to BC1
//   A2        connects to BDIR
//   BC2       is tied to +5V
//   With BC2 high a stock YM2149 reads BC1 alone as READ, not address
//   latch. Address mode here is BC1 only, so this wiring needs an
//   interface that maps it to BDIR+BC1 before it drives a bare chip.
var DefaultWiring = Wiring{
	Data: [8]hal.PinID{
		2,
		3,
		4,
		5,
		6,
		7,
		8,
		9,
	},
	Clock: 11,
	BC1:   17,
	BDIR:  16,
}
