package flittrace

import (
	"errors"
	"fmt"
)

// DefaultInterval is the number of ticks between two frames.
const DefaultInterval = 250

// DefaultMeshSize is the side of the mesh drawn by default.
const DefaultMeshSize = 4

// MaxMeshSize is the largest mesh side that can be drawn.
const MaxMeshSize = 32

// MaxFrames is the largest number of frames in an animation.
const MaxFrames = 20000

// ErrTooManyFrames is returned when the interval is too short for the length
// of the trace.
var ErrTooManyFrames = errors.New("too many frames")

// RouterState is a router in a frame.
type RouterState struct {
	ID     int      `json:"id"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Flits  int      `json:"flits"`
	Size   int      `json:"size"`
	Active bool     `json:"active"`
	Labels []string `json:"labels"`
}

// LinkState is a link in a frame.
type LinkState struct {
	ID     int      `json:"id"`
	Src    int      `json:"src"`
	Dst    int      `json:"dst"`
	Flits  int      `json:"flits"`
	Width  int      `json:"width"`
	Active bool     `json:"active"`
	Labels []string `json:"labels"`
}

// A Frame is the network drawn at one tick.
type Frame struct {
	Tick    uint64        `json:"tick"`
	Routers []RouterState `json:"routers"`
	Links   []LinkState   `json:"links"`
}

// An Animation is the sequence of frames of a log.
type Animation struct {
	Mesh      *Mesh   `json:"mesh"`
	Interval  uint64  `json:"interval"`
	Snapshots int     `json:"snapshots"`
	Frames    []Frame `json:"frames"`
}

// Label describes a flit.
func Label(f Flit) string {
	return fmt.Sprintf("G%d (P%d.F%d): R%d→R%d",
		f.GlobalID, f.PacketID, f.ID, f.Src, f.Dest)
}

func labels(flits []Flit) []string {
	out := make([]string, 0, len(flits))
	for _, f := range flits {
		out = append(out, Label(f))
	}

	return out
}

// Animate draws a frame every interval ticks, from tick 0 to the last
// snapshot. Each frame shows the latest snapshot at or before its tick. A
// link is active when it or its reverse carries a flit. Animations of more
// than MaxFrames frames are refused with ErrTooManyFrames.
func Animate(tl *Timeline, mesh *Mesh, interval uint64) (*Animation, error) {
	if tl.Len() == 0 {
		return nil, ErrEmptyTrace
	}

	if interval == 0 {
		return nil, errors.New("interval must be positive")
	}

	steps := tl.MaxTick() / interval
	if steps >= MaxFrames {
		return nil, fmt.Errorf("%w: interval %d over %d ticks, at most %d frames",
			ErrTooManyFrames, interval, tl.MaxTick(), MaxFrames)
	}

	frames := steps + 1

	a := &Animation{
		Mesh:      mesh,
		Interval:  interval,
		Snapshots: tl.Len(),
	}

	empty := &Snapshot{Routers: map[int][]Flit{}, Links: map[int][]Flit{}}

	a.Frames = make([]Frame, 0, frames)

	for i := uint64(0); i < frames; i++ {
		t := i * interval

		snap, ok := tl.At(t)
		if !ok {
			snap = empty
		}

		a.Frames = append(a.Frames, drawFrame(t, snap, mesh))
	}

	return a, nil
}

func drawFrame(t uint64, snap *Snapshot, mesh *Mesh) Frame {
	f := Frame{
		Tick:    t,
		Routers: make([]RouterState, 0, len(mesh.Routers)),
		Links:   make([]LinkState, 0, len(mesh.Links)),
	}

	for id, pos := range mesh.Routers {
		flits := snap.Routers[id]
		f.Routers = append(f.Routers, RouterState{
			ID:     id,
			X:      pos.X,
			Y:      pos.Y,
			Flits:  len(flits),
			Size:   len(flits)*5 + 10,
			Active: len(flits) > 0,
			Labels: labels(flits),
		})
	}

	for _, l := range mesh.Links {
		flits := snap.Links[l.ID]
		reverse := snap.Links[mesh.Reverse(l.ID)]

		f.Links = append(f.Links, LinkState{
			ID:     l.ID,
			Src:    l.Src,
			Dst:    l.Dst,
			Flits:  len(flits),
			Width:  max(2, len(flits)*2),
			Active: len(flits) > 0 || len(reverse) > 0,
			Labels: labels(flits),
		})
	}

	return f
}
