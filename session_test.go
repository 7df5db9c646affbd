package main

import (
	"reflect"
	"testing"
)

func TestMemorySessionsDraft(t *testing.T) {
	m := NewMemorySessions()

	if _, ok := m.Draft(1); ok {
		t.Fatal("expected no draft for fresh user")
	}

	first := &EventProposal{Title: "First"}
	m.SetDraft(1, first)
	got, ok := m.Draft(1)
	if !ok || got.Title != "First" {
		t.Fatalf("Draft = %+v, %v", got, ok)
	}

	m.SetDraft(1, &EventProposal{Title: "Second"})
	got, _ = m.Draft(1)
	if got.Title != "Second" {
		t.Errorf("draft not overwritten, got %q", got.Title)
	}

	if _, ok := m.Draft(2); ok {
		t.Error("draft leaked across users")
	}
}

func TestMemorySessionsInterestDedup(t *testing.T) {
	m := NewMemorySessions()
	m.AddInterest(1, "Music")
	m.AddInterest(1, "Technology")
	m.AddInterest(1, "Music")

	want := []string{"Music", "Technology"}
	if got := m.Interests(1); !reflect.DeepEqual(got, want) {
		t.Errorf("Interests = %v, want %v", got, want)
	}
	if got := m.Interests(2); len(got) != 0 {
		t.Errorf("interests leaked across users: %v", got)
	}
}

func TestMemorySessionsPreferredTimes(t *testing.T) {
	m := NewMemorySessions()
	m.AddPreferredTime(1, "Evening")
	m.AddPreferredTime(1, "Morning")
	m.AddPreferredTime(1, "Evening")

	want := []string{"Evening", "Morning"}
	if got := m.PreferredTimes(1); !reflect.DeepEqual(got, want) {
		t.Errorf("PreferredTimes = %v, want %v", got, want)
	}
}

func TestMemorySessionsReturnsCopies(t *testing.T) {
	m := NewMemorySessions()
	m.AddInterest(1, "Art")

	got := m.Interests(1)
	got[0] = "mutated"
	if fresh := m.Interests(1); fresh[0] != "Art" {
		t.Errorf("internal state mutated through returned slice: %v", fresh)
	}
}
