package sim

import (
	"time"

	"github.com/san-kum/polychain/internal/dynamo"
)

// Observer is notified of every sampled frame. The frame's vectors are
// reused by the driver and must not be retained.
type Observer interface {
	OnFrame(f *dynamo.Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f *dynamo.Frame)

func (fn ObserverFunc) OnFrame(f *dynamo.Frame) { fn(f) }

type Result struct {
	StepsTaken int
	Frames     int
	SimTime    float64
	WallTime   time.Duration
	Metrics    map[string]float64
}
