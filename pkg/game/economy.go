package game

import "time"

// Bounds for the relationship economy. Affection and trust share the
// same range; gold is clamped separately against the configured cap.
const (
	StatMin = -100
	StatMax = 150

	GoldMin        = 0
	DefaultMaxGold = 10000
)

// Level is one named band of an affection or trust scale. Bands are
// ordered and cover the full [StatMin, StatMax] range with inclusive
// [Min, Max] bounds.
type Level struct {
	Name  string `json:"name"`
	Label string `json:"label"` // display label used in prompts
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// AffectionLevels maps affection values to relationship bands.
var AffectionLevels = []Level{
	{Name: "stranger", Label: "陌生", Min: -100, Max: 19},
	{Name: "acquainted", Label: "熟识", Min: 20, Max: 49},
	{Name: "friend", Label: "朋友", Min: 50, Max: 89},
	{Name: "close", Label: "亲密", Min: 90, Max: 129},
	{Name: "devoted", Label: "挚爱", Min: 130, Max: 150},
}

// TrustLevels maps trust values to named bands.
var TrustLevels = []Level{
	{Name: "wary", Label: "戒备", Min: -100, Max: -1},
	{Name: "neutral", Label: "平常", Min: 0, Max: 29},
	{Name: "trusting", Label: "信任", Min: 30, Max: 79},
	{Name: "confiding", Label: "交心", Min: 80, Max: 150},
}

// LevelFor resolves the band containing value. Values outside every
// band resolve to the nearest end of the scale.
func LevelFor(levels []Level, value int) Level {
	for _, l := range levels {
		if value >= l.Min && value <= l.Max {
			return l
		}
	}
	if value < levels[0].Min {
		return levels[0]
	}
	return levels[len(levels)-1]
}

// StatChange reports an affection or trust mutation.
type StatChange struct {
	Old      int   `json:"old"`
	New      int   `json:"new"`
	OldLevel Level `json:"old_level"`
	NewLevel Level `json:"new_level"`
}

// Changed reports whether the mutation crossed a band boundary.
func (c StatChange) Changed() bool {
	return c.OldLevel.Name != c.NewLevel.Name
}

// UpdateAffection applies delta to the session's affection, clamped to
// [StatMin, StatMax], and refreshes the derived relationship label.
func UpdateAffection(s *Session, delta int) StatChange {
	old := s.Affection
	s.Affection = clamp(old+delta, StatMin, StatMax)
	change := StatChange{
		Old:      old,
		New:      s.Affection,
		OldLevel: LevelFor(AffectionLevels, old),
		NewLevel: LevelFor(AffectionLevels, s.Affection),
	}
	s.Relationship = change.NewLevel.Name
	return change
}

// UpdateTrust applies delta to the session's trust, clamped to
// [StatMin, StatMax].
func UpdateTrust(s *Session, delta int) StatChange {
	old := s.Trust
	s.Trust = clamp(old+delta, StatMin, StatMax)
	return StatChange{
		Old:      old,
		New:      s.Trust,
		OldLevel: LevelFor(TrustLevels, old),
		NewLevel: LevelFor(TrustLevels, s.Trust),
	}
}

// GoldChange reports a gold mutation.
type GoldChange struct {
	Old int `json:"old"`
	New int `json:"new"`
}

// UpdateGold applies delta to the session's gold, clamped to
// [GoldMin, maxGold]. A non-positive maxGold falls back to the default cap.
func UpdateGold(s *Session, delta, maxGold int) GoldChange {
	if maxGold <= 0 {
		maxGold = DefaultMaxGold
	}
	old := s.Gold
	s.Gold = clamp(old+delta, GoldMin, maxGold)
	return GoldChange{Old: old, New: s.Gold}
}

// AddItem appends an item to the inventory, stamping the obtained time
// if the caller left it zero.
func AddItem(s *Session, item Item) {
	if item.ObtainedAt.IsZero() {
		item.ObtainedAt = time.Now()
	}
	s.Items = append(s.Items, item)
}

// UseItem consumes the named item. Key items are kept and flagged used;
// all other types are removed from the inventory.
func UseItem(s *Session, name string) Result {
	for i := range s.Items {
		if s.Items[i].Name != name {
			continue
		}
		if s.Items[i].Type == ItemTypeKey {
			if s.Items[i].Used {
				return Fail("item already used")
			}
			s.Items[i].Used = true
			return OK()
		}
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		return OK()
	}
	return Fail("item not found")
}

// RemoveItem discards the named item regardless of type.
func RemoveItem(s *Session, name string) Result {
	for i := range s.Items {
		if s.Items[i].Name == name {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return OK()
		}
	}
	return Fail("item not found")
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
