package flittrace

import (
	"sort"

	"github.com/google/btree"
)

// A Flit is a flit seen in the log, named by the event that injected it.
type Flit struct {
	GlobalID int `json:"global_id"`
	PacketID int `json:"packet_id"`
	ID       int `json:"id"`
	Src      int `json:"src"`
	Dest     int `json:"dest"`
}

type placeKind int

const (
	placeNone placeKind = iota
	placeRouter
	placeLink
	placeEjected
)

type flitState struct {
	flit  Flit
	kind  placeKind
	place int
}

// A Snapshot lists the flits held by each router and each link after the
// last event of a tick.
type Snapshot struct {
	Tick    uint64         `json:"tick"`
	Routers map[int][]Flit `json:"routers"`
	Links   map[int][]Flit `json:"links"`
}

// Less orders snapshots by tick.
func (s *Snapshot) Less(than btree.Item) bool {
	return s.Tick < than.(*Snapshot).Tick
}

// A Timeline holds one snapshot per distinct tick of a log.
type Timeline struct {
	tree *btree.BTree
}

// Replay follows every injected flit through the events. Events are taken in
// tick order, keeping the log order within a tick. Events of flits that were
// never injected are ignored.
func Replay(events []Event) *Timeline {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tick < sorted[j].Tick
	})

	tl := &Timeline{tree: btree.New(32)}
	flits := map[int]*flitState{}
	order := []int{}

	for i, e := range sorted {
		apply(flits, &order, e)

		last := i == len(sorted)-1 || sorted[i+1].Tick != e.Tick
		if last {
			tl.tree.ReplaceOrInsert(snapshot(e.Tick, flits, order))
		}
	}

	return tl
}

func apply(flits map[int]*flitState, order *[]int, e Event) {
	if e.Status == StatusInjected {
		if _, seen := flits[e.GlobalID]; !seen {
			*order = append(*order, e.GlobalID)
		}

		flits[e.GlobalID] = &flitState{
			flit: Flit{
				GlobalID: e.GlobalID,
				PacketID: e.PacketID,
				ID:       e.ID,
				Src:      e.Src,
				Dest:     e.Dest,
			},
		}

		return
	}

	f, ok := flits[e.GlobalID]
	if !ok {
		return
	}

	switch e.Status {
	case StatusSwitchIn, StatusRouterReceive:
		f.kind, f.place = placeRouter, e.LinkID
	case StatusLinkStart, StatusLinkTransit:
		f.kind, f.place = placeLink, e.LinkID
	case StatusEjected:
		f.kind, f.place = placeEjected, 0
	}
}

func snapshot(tick uint64, flits map[int]*flitState, order []int) *Snapshot {
	s := &Snapshot{
		Tick:    tick,
		Routers: map[int][]Flit{},
		Links:   map[int][]Flit{},
	}

	for _, gid := range order {
		f := flits[gid]

		switch f.kind {
		case placeRouter:
			s.Routers[f.place] = append(s.Routers[f.place], f.flit)
		case placeLink:
			s.Links[f.place] = append(s.Links[f.place], f.flit)
		}
	}

	return s
}

// Len returns the number of snapshots.
func (t *Timeline) Len() int {
	return t.tree.Len()
}

// MaxTick returns the tick of the last snapshot.
func (t *Timeline) MaxTick() uint64 {
	if t.tree.Len() == 0 {
		return 0
	}

	return t.tree.Max().(*Snapshot).Tick
}

// At returns the latest snapshot taken at or before a tick. ok is false if
// there is none.
func (t *Timeline) At(tick uint64) (s *Snapshot, ok bool) {
	t.tree.DescendLessOrEqual(&Snapshot{Tick: tick}, func(i btree.Item) bool {
		s = i.(*Snapshot)
		return false
	})

	return s, s != nil
}

// Snapshots returns all snapshots in tick order.
func (t *Timeline) Snapshots() []*Snapshot {
	out := make([]*Snapshot, 0, t.tree.Len())
	t.tree.Ascend(func(i btree.Item) bool {
		out = append(out, i.(*Snapshot))
		return true
	})

	return out
}
