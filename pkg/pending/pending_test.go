package pending

import (
	"fmt"
	"testing"
	"time"

	"github.com/jwebster45206/galgame-engine/pkg/parser"
)

func TestCache_SaveAndGetByOrigin(t *testing.T) {
	c := NewCache(0, 0)
	c.Save(&Choice{
		Scope:           "group1",
		OriginMessageID: "msg1",
		UserID:          "u1",
		Kind:            KindOption,
		Options:         []parser.Option{{Index: 1, Text: "打招呼"}},
	})

	choice := c.GetByOrigin("group1", "msg1")
	if choice == nil {
		t.Fatal("Expected pending choice to be found")
	}
	if choice.Kind != KindOption || len(choice.Options) != 1 {
		t.Errorf("Unexpected choice %+v", choice)
	}

	if c.GetByOrigin("group2", "msg1") != nil {
		t.Error("Expected lookup in another scope to miss")
	}
}

func TestCache_ExpiredTreatedAsAbsent(t *testing.T) {
	c := NewCache(time.Minute, 0)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Save(&Choice{Scope: "g", OriginMessageID: "m", UserID: "u1", Kind: KindEvent})

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if c.GetByOrigin("g", "m") != nil {
		t.Error("Expected expired entry to be absent on origin lookup")
	}
	if c.FindByUser("g", "u1") != nil {
		t.Error("Expected expired entry to be absent on user lookup")
	}
}

func TestCache_SaveSweepsExpired(t *testing.T) {
	c := NewCache(time.Minute, 0)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Save(&Choice{Scope: "g", OriginMessageID: "old", UserID: "u1"})

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.Save(&Choice{Scope: "g", OriginMessageID: "new", UserID: "u1"})

	if c.Len() != 1 {
		t.Errorf("Expected expired entry swept on insert, have %d entries", c.Len())
	}
}

func TestCache_FindByUserReturnsNewest(t *testing.T) {
	c := NewCache(time.Hour, 0)
	base := time.Now()

	c.Save(&Choice{Scope: "g", OriginMessageID: "m1", UserID: "u1", CreatedAt: base})
	c.Save(&Choice{Scope: "g", OriginMessageID: "m2", UserID: "u1", CreatedAt: base.Add(time.Second)})
	c.Save(&Choice{Scope: "g", OriginMessageID: "m3", UserID: "u2", CreatedAt: base.Add(time.Minute)})

	choice := c.FindByUser("g", "u1")
	if choice == nil {
		t.Fatal("Expected a pending choice for u1")
	}
	if choice.OriginMessageID != "m2" {
		t.Errorf("Expected newest entry m2, got %q", choice.OriginMessageID)
	}
}

func TestCache_Remove(t *testing.T) {
	c := NewCache(0, 0)
	c.Save(&Choice{Scope: "g", OriginMessageID: "m", UserID: "u1"})
	c.Remove("g", "m")
	if c.GetByOrigin("g", "m") != nil {
		t.Error("Expected removed entry to be absent")
	}
}

func TestCache_EvictsOldestAtCap(t *testing.T) {
	c := NewCache(time.Hour, 3)
	base := time.Now()
	for i := 0; i < 4; i++ {
		c.Save(&Choice{
			Scope:           "g",
			OriginMessageID: fmt.Sprintf("m%d", i),
			UserID:          "u1",
			CreatedAt:       base.Add(time.Duration(i) * time.Second),
		})
	}

	if c.Len() != 3 {
		t.Errorf("Expected cache bounded at 3 entries, have %d", c.Len())
	}
	if c.GetByOrigin("g", "m0") != nil {
		t.Error("Expected oldest entry evicted")
	}
	if c.GetByOrigin("g", "m3") == nil {
		t.Error("Expected newest entry kept")
	}
}
