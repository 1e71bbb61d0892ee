package seq

import "fmt"

// Divisions is the allowed set of beat subdivisions of a bar.
var Divisions = []int{1, 2, 3, 4, 6, 8, 12, 16, 24, 32}

func ValidDivision(n int) bool {
	for _, d := range Divisions {
		if d == n {
			return true
		}
	}
	return false
}

// ChokeGrp is a set of track ids that silence one another's tails. A hat
// pair (open/closed) is the classic use.
type ChokeGrp struct {
	TrackIDs []int
}

func NewChokeGrp(trackIDs ...int) ChokeGrp {
	g := ChokeGrp{}
	for _, id := range trackIDs {
		g.AddTrack(id)
	}
	return g
}

func (g *ChokeGrp) AddTrack(trackID int) {
	if g.IsMember(trackID) {
		return
	}
	g.TrackIDs = append(g.TrackIDs, trackID)
}

func (g *ChokeGrp) RemoveTrack(trackID int) {
	kept := g.TrackIDs[:0]
	for _, id := range g.TrackIDs {
		if id != trackID {
			kept = append(kept, id)
		}
	}
	g.TrackIDs = kept
}

func (g *ChokeGrp) IsMember(trackID int) bool {
	for _, id := range g.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}

// ChokedIDs returns the other members if trackID is in the group.
func (g *ChokeGrp) ChokedIDs(trackID int) []int {
	if !g.IsMember(trackID) {
		return nil
	}
	others := make([]int, 0, len(g.TrackIDs)-1)
	for _, id := range g.TrackIDs {
		if id != trackID {
			others = append(others, id)
		}
	}
	return others
}

// Pattern is an ordered list of tracks plus their muting relationships and
// time division. Track ids are indices into Tracks and stay stable for the
// pattern's lifetime.
type Pattern struct {
	Tracks    []*Track
	ChokeGrps []ChokeGrp
	Division  int
	Swing     int
	Name      string
}

func NewPattern(name string) *Pattern {
	return &Pattern{
		Division: 4,
		Name:     name,
	}
}

func (p *Pattern) AddTrack(t *Track) int {
	p.Tracks = append(p.Tracks, t)
	return len(p.Tracks) - 1
}

func (p *Pattern) SetDivision(division int) error {
	if !ValidDivision(division) {
		return fmt.Errorf("division %d not in %v", division, Divisions)
	}
	p.Division = division
	return nil
}

func (p *Pattern) SetSwing(swing int) error {
	if swing < 0 || swing > 100 {
		return fmt.Errorf("swing %d out of range [0,100]", swing)
	}
	p.Swing = swing
	return nil
}

// SetLen resizes every track in the pattern.
func (p *Pattern) SetLen(n int) error {
	for _, t := range p.Tracks {
		if err := t.SetLen(n); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pattern) ZeroAllTracks() {
	for _, t := range p.Tracks {
		t.ResetSlots()
	}
}

func (p *Pattern) ResetPlayheads() {
	for _, t := range p.Tracks {
		t.Idx = 0
	}
}

// ChokedIDs collects the other track ids across all groups that trackID
// chokes, deduplicated.
func (p *Pattern) ChokedIDs(trackID int) []int {
	seen := map[int]bool{}
	var ids []int
	for i := range p.ChokeGrps {
		for _, id := range p.ChokeGrps[i].ChokedIDs(trackID) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// IsTrackChoked reports whether some triggered id other than trackID shares
// a choke group with it. This is the only choke query the scheduler uses.
func (p *Pattern) IsTrackChoked(triggeredIDs []int, trackID int) bool {
	for _, fired := range triggeredIDs {
		for _, choked := range p.ChokedIDs(fired) {
			if choked == trackID {
				return true
			}
		}
	}
	return false
}

// Clone duplicates the pattern structure. Tracks share samples (buffers are
// immutable) but get fresh slot storage; sinks are shared until the caller
// replaces them.
func (p *Pattern) Clone() *Pattern {
	dup := &Pattern{
		Division: p.Division,
		Swing:    p.Swing,
		Name:     p.Name,
	}
	for _, t := range p.Tracks {
		slots := make([]Slot, len(t.Slots))
		copy(slots, t.Slots)
		dup.Tracks = append(dup.Tracks, &Track{
			Slots:      slots,
			Sample:     t.Sample,
			SamplePath: t.SamplePath,
			Name:       t.Name,
			Idx:        0,
			Len:        t.Len,
			Sink:       t.Sink,
		})
	}
	for _, g := range p.ChokeGrps {
		ids := make([]int, len(g.TrackIDs))
		copy(ids, g.TrackIDs)
		dup.ChokeGrps = append(dup.ChokeGrps, ChokeGrp{TrackIDs: ids})
	}
	return dup
}
