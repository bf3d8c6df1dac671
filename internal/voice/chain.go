package voice

import (
	"fmt"
	"slices"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/synth8-go/internal/node"
)

type ChainOption func(*Chain)

// WithHardSync resets oscillator phases on every TriggerOn. By default a
// retriggered voice keeps its phase so it does not click.
func WithHardSync() ChainOption {
	return func(c *Chain) { c.hardSync = true }
}

// route collects the modulators bound to one parameter of one node. Their
// control blocks are summed before the node applies its combination policy.
type route struct {
	target node.Node
	param  node.Param
	mods   []int
	acc    []float32
}

// Chain is a voice built from an ordered list of nodes plus the modulators
// driving their parameters. Build it completely before handing it to an
// engine.
type Chain struct {
	sampleRate int
	hardSync   bool
	gate       gate

	nodes  []node.Node
	mods   []Modulator
	gated  []Modulator
	routes []*route

	modBufs [][]float32
	ping    []float32
	pong    []float32
}

func NewChain(sampleRate int, opts ...ChainOption) *Chain {
	c := &Chain{sampleRate: sampleRate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) SampleRate() int         { return c.sampleRate }
func (c *Chain) State() GateState        { return c.gate.load() }
func (c *Chain) Nodes() []node.Node      { return c.nodes }
func (c *Chain) Modulators() []Modulator { return c.mods }

// Connect appends nodes to the end of the chain.
func (c *Chain) Connect(nodes ...node.Node) *Chain {
	c.nodes = append(c.nodes, nodes...)
	return c
}

// AddModulator registers a modulator without binding it to a parameter. A
// gated modulator added this way still decides when the voice is removed.
func (c *Chain) AddModulator(m Modulator) {
	c.modIndex(m)
}

func (c *Chain) modIndex(m Modulator) int {
	if i := slices.Index(c.mods, m); i >= 0 {
		return i
	}
	c.mods = append(c.mods, m)
	c.modBufs = append(c.modBufs, nil)
	if m.Gated() {
		c.gated = append(c.gated, m)
	}
	return len(c.mods) - 1
}

// Modulate binds m to the named parameter of target, which must already be
// connected.
func (c *Chain) Modulate(m Modulator, target node.Node, param string) error {
	if !slices.Contains(c.nodes, target) {
		return fmt.Errorf("%w: %T", ErrTargetNotInChain, target)
	}
	p, err := node.Lookup(target, param)
	if err != nil {
		return err
	}
	var r *route
	for _, existing := range c.routes {
		if existing.target == target && existing.param == p {
			r = existing
			break
		}
	}
	idx := c.modIndex(m)
	if r == nil {
		r = &route{target: target, param: p}
		c.routes = append(c.routes, r)
	} else if slices.Contains(r.mods, idx) {
		return fmt.Errorf("%w: %T.%s", ErrDuplicateBinding, target, p)
	}
	r.mods = append(r.mods, idx)
	return nil
}

func (c *Chain) Validate() error {
	if len(c.nodes) == 0 {
		return ErrEmptyChain
	}
	return nil
}

// TriggerOn opens the gate and restarts every modulator. A Removed voice
// comes back to Active; envelopes restart from their current level.
func (c *Chain) TriggerOn() {
	c.gate.store(Active)
	for _, m := range c.mods {
		m.TriggerOn()
	}
	if c.hardSync {
		for _, n := range c.nodes {
			switch src := n.(type) {
			case *node.Oscillator, *node.FM:
				src.Reset()
			}
		}
	}
}

// TriggerOff starts the release. A voice without gated modulators has no
// release tail and goes silent immediately.
func (c *Chain) TriggerOff() {
	if c.gate.load() != Active {
		return
	}
	for _, m := range c.mods {
		m.TriggerOff()
	}
	if len(c.gated) == 0 {
		c.gate.store(Inactive)
		return
	}
	c.gate.store(Releasing)
}

func (c *Chain) Render(dst []float32) {
	st := c.gate.load()
	if !st.Sounding() || len(c.nodes) == 0 {
		clear(dst)
		return
	}
	n := len(dst)
	c.modulate(n)

	c.ping = grow(c.ping, n)
	c.pong = grow(c.pong, n)
	bufs := [2][]float32{c.ping, c.pong}
	var in []float32
	for i, nd := range c.nodes {
		out := bufs[i%2]
		if i == len(c.nodes)-1 {
			out = dst
		}
		nd.Process(in, out)
		in = out
	}
	if !finiteBlock(dst) {
		clear(dst)
		for _, nd := range c.nodes {
			nd.Reset()
		}
	}

	if st == Releasing && c.released() {
		c.gate.store(Removed)
	}
}

// modulate evaluates every modulator once, then hands each bound parameter
// the sum of its control blocks.
func (c *Chain) modulate(n int) {
	for i, m := range c.mods {
		c.modBufs[i] = grow(c.modBufs[i], n)
		m.Render(c.modBufs[i])
	}
	for _, r := range c.routes {
		r.acc = grow(r.acc, n)
		copy(r.acc, c.modBufs[r.mods[0]])
		for _, mi := range r.mods[1:] {
			vek32.Add_Inplace(r.acc, c.modBufs[mi])
		}
		// Modulate only fails for a parameter the target lacks, which the
		// route was checked against when it was bound.
		_ = r.target.Modulate(r.param, r.acc)
	}
}

func (c *Chain) released() bool {
	for _, m := range c.gated {
		if !m.Finished() {
			return false
		}
	}
	return true
}
