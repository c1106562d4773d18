// seehuhn.de/go/meshrender - rendering and picking for unstructured meshes
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stats

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"seehuhn.de/go/meshrender/cube"
)

// DefaultUpdateSpan is the minimum time between two partial-result
// notifications at the same level.
const DefaultUpdateSpan = 3 * time.Second

// LayerListener is told about progress on the value range of a layer.
type LayerListener interface {
	LayerUpdated(layer int, info Info)
}

// DatasetListener is told about progress on the value range of the whole
// dataset.
type DatasetListener interface {
	DatasetUpdated(info Info)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for statistics errors.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithUpdateSpan sets the notification throttle.  A zero span delivers
// every update.
func WithUpdateSpan(d time.Duration) Option {
	return func(e *Engine) { e.updateSpan = d }
}

// step holds the range of one (layer, timestep) pair.
type step struct {
	mu   sync.Mutex
	done bool
	acc  *Accumulator
}

// Engine computes value ranges of a cube in the background.
type Engine struct {
	c          cube.Cube
	nt, nl, nc int

	log        logrus.FieldLogger
	updateSpan time.Duration
	now        func() time.Time

	steps   []step // indexed by layer*nt + t
	layers  []*Accumulator
	dataset *Accumulator

	startOnce sync.Once
	done      chan struct{}
	complete  atomic.Bool

	errMu sync.Mutex
	err   error

	// the fields below are used for notifications
	lmu              sync.Mutex
	layerListeners   []LayerListener
	datasetListeners []DatasetListener
	lastLayer        time.Time
	lastDataset      time.Time
	layerFinished    []bool
	datasetFinished  bool
}

// NewEngine prepares the statistics for c.  Call Start to begin the
// background sweep.
func NewEngine(c cube.Cube, opts ...Option) *Engine {
	nt, nl, nc := c.NumTimesteps(), c.NumLayers(), c.NumCells()
	e := &Engine{
		c:          c,
		nt:         nt,
		nl:         nl,
		nc:         nc,
		log:        logrus.StandardLogger(),
		updateSpan: DefaultUpdateSpan,
		now:        time.Now,
		steps:      make([]step, nt*nl),
		layers:     make([]*Accumulator, nl),
		dataset:    NewAccumulator(nt * nl * nc),
		done:       make(chan struct{}),

		layerFinished: make([]bool, nl),
	}
	for i := range e.steps {
		e.steps[i].acc = NewAccumulator(nc)
	}
	for l := range e.layers {
		e.layers[l] = NewAccumulator(nt * nc)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the background sweep.  Only the first call has an
// effect.  Cancelling ctx stops the sweep after the current step.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		go e.run(ctx)
	})
}

// Done returns a channel which is closed when the sweep has ended.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the sweep has ended.
func (e *Engine) Wait() {
	<-e.done
}

// Complete reports whether every step has been computed.
func (e *Engine) Complete() bool {
	return e.complete.Load()
}

// Err returns all statistics errors seen so far, or nil.
func (e *Engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	for layer := range e.nl {
		for t := range e.nt {
			if ctx.Err() != nil {
				e.log.WithField("layer", layer).Debug("statistics sweep cancelled")
				return
			}
			e.compute(layer, t)
			e.notify(layer)
		}
	}
	e.complete.Store(true)
}

// compute makes sure the step (layer, t) is complete.  The extremes of a
// newly computed step are folded into the layer and the dataset.
func (e *Engine) compute(layer, t int) Info {
	s := &e.steps[layer*e.nt+t]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.acc.Snapshot()
	}

	if err := e.visit(s.acc, layer, t); err != nil {
		e.addError(&StatisticsError{Layer: layer, Timestep: t, Err: err})
	}
	s.done = true

	info := s.acc.Snapshot()
	e.layers[layer].Fold(info, e.nc)
	e.dataset.Fold(info, e.nc)
	return info
}

// visit reads all cell values of one step.  A panic in the value source
// abandons the step: its extremes are discarded, but the step still
// counts as visited.
func (e *Engine) visit(acc *Accumulator, layer, t int) (err error) {
	local := NewAccumulator(e.nc)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading values: %v", r)
		}
		if err != nil {
			local = NewAccumulator(e.nc)
		}
		acc.Fold(local.Snapshot(), e.nc)
	}()
	for cell := range e.nc {
		local.Add(e.c.Value(t, layer, cell))
	}
	return nil
}

func (e *Engine) addError(err *StatisticsError) {
	e.log.WithFields(logrus.Fields{
		"layer":    err.Layer,
		"timestep": err.Timestep,
	}).WithError(err.Err).Error("statistics failed")

	e.errMu.Lock()
	e.err = multierr.Append(e.err, err)
	e.errMu.Unlock()
}

// notify tells the listeners about the current state of layer and of the
// dataset.  Partial results are throttled.  The 100% update is delivered
// exactly once per level; after the dataset is complete all listeners are
// dropped.
func (e *Engine) notify(layer int) {
	layerInfo := e.layers[layer].Snapshot()
	datasetInfo := e.dataset.Snapshot()

	e.lmu.Lock()
	now := e.now()
	var ll []LayerListener
	if !e.layerFinished[layer] &&
		(layerInfo.Complete() || now.Sub(e.lastLayer) >= e.updateSpan) {
		ll = slices.Clone(e.layerListeners)
		e.lastLayer = now
		e.layerFinished[layer] = layerInfo.Complete()
	}
	var dl []DatasetListener
	if !e.datasetFinished &&
		(datasetInfo.Complete() || now.Sub(e.lastDataset) >= e.updateSpan) {
		dl = slices.Clone(e.datasetListeners)
		e.lastDataset = now
		e.datasetFinished = datasetInfo.Complete()
	}
	if e.datasetFinished {
		e.layerListeners = nil
		e.datasetListeners = nil
	}
	e.lmu.Unlock()

	for _, l := range ll {
		l.LayerUpdated(layer, layerInfo)
	}
	for _, l := range dl {
		l.DatasetUpdated(datasetInfo)
	}
}

// LayerInfo returns the current range of layer.  Timestep 0 of the layer
// is computed first if the sweep has not reached it yet, so that the
// result always covers at least one full step.  Unless the sweep is
// complete, l (if non-nil) is registered for future updates.
func (e *Engine) LayerInfo(layer int, l LayerListener) Info {
	e.compute(layer, 0)
	if l != nil && !e.Complete() {
		e.lmu.Lock()
		if !e.datasetFinished && !slices.Contains(e.layerListeners, l) {
			e.layerListeners = append(e.layerListeners, l)
		}
		e.lmu.Unlock()
	}
	return e.layers[layer].Snapshot()
}

// DatasetInfo returns the current range of the whole dataset.  Unless the
// sweep is complete, l (if non-nil) is registered for future updates.
func (e *Engine) DatasetInfo(l DatasetListener) Info {
	if l != nil && !e.Complete() {
		e.lmu.Lock()
		if !e.datasetFinished && !slices.Contains(e.datasetListeners, l) {
			e.datasetListeners = append(e.datasetListeners, l)
		}
		e.lmu.Unlock()
	}
	return e.dataset.Snapshot()
}

// StepInfo returns the range of one timestep of one layer, computing it
// if needed.
func (e *Engine) StepInfo(layer, t int) Info {
	return e.compute(layer, t)
}
