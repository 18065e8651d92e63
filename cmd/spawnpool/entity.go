package main

import (
	"sync/atomic"

	"github.com/ajitpratap0/spawnpool/pkg/pool"
)

// entity is the pooled value the CLI spawns: a stand-in for a game object
// with an identity, a position and an age in frames.
type entity struct {
	Prototype pool.Prototype `json:"prototype"`
	Serial    uint64         `json:"serial"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Age       int            `json:"age"`
	Retired   bool           `json:"retired"`
}

// entity speed in units per frame
const (
	speedX = 1.5
	speedY = 0.5
)

// advance moves a live entity one frame along its heading
func advance(e *entity) {
	e.Age++
	e.X += speedX
	e.Y += speedY
}

var serials atomic.Uint64

func entityHooks() pool.Hooks[*entity] {
	return pool.Hooks[*entity]{
		New: func(p pool.Prototype) (*entity, error) {
			return &entity{Prototype: p, Serial: serials.Add(1)}, nil
		},
		Reset: func(e *entity) {
			e.X, e.Y, e.Age = 0, 0, 0
		},
		Discard: func(e *entity) {
			e.Retired = true
		},
	}
}
