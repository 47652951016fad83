/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"

	storeerrors "github.com/suparena/storekit/errors"
)

func playerMeta(t *testing.T) *PersistentEntity {
	t.Helper()
	m, err := Describe(reflect.TypeOf(player{}), "players")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	return m
}

func TestAccessGetSet(t *testing.T) {
	m := playerMeta(t)
	joined := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	p := &player{
		ID:      "p-1",
		Email:   "ana@example.com",
		Name:    "Ana",
		Rating:  1820.5,
		Version: 3,
		Joined:  joined,
		ClubIDs: []string{"c-1", "c-2"},
	}

	a, err := NewAccess(m, p)
	if err != nil {
		t.Fatalf("NewAccess failed: %v", err)
	}

	cases := map[string]any{
		"ID":      "p-1",
		"Email":   "ana@example.com",
		"Rating":  1820.5,
		"Version": int64(3),
		"Joined":  joined,
	}
	for name, want := range cases {
		prop, _ := m.Property(name)
		got, err := a.Get(prop)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", name, err)
		}
		if got != want {
			t.Errorf("Get(%s): expected %v, got %v", name, want, got)
		}
	}

	clubs, _ := m.Property("ClubIDs")
	got, err := a.Get(clubs)
	if err != nil {
		t.Fatalf("Get(ClubIDs) failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"c-1", "c-2"}) {
		t.Errorf("Get(ClubIDs): expected key list, got %v", got)
	}

	name, _ := m.Property("Name")
	if err := a.Set(name, "Anabel"); err != nil {
		t.Fatalf("Set(Name) failed: %v", err)
	}
	if p.Name != "Anabel" {
		t.Errorf("Set should write through to the struct, got %q", p.Name)
	}

	rating, _ := m.Property("Rating")
	if err := a.Set(rating, float64(1900)); err != nil {
		t.Fatalf("Set(Rating) failed: %v", err)
	}
	if p.Rating != 1900 {
		t.Errorf("Expected rating 1900, got %v", p.Rating)
	}
}

func TestAccessIdentityAndVersion(t *testing.T) {
	m := playerMeta(t)
	p := &player{ID: "p-7", Version: 2}
	a, _ := NewAccess(m, p)

	id, err := a.Identifier()
	if err != nil || id != "p-7" {
		t.Fatalf("Identifier: expected p-7, got %v (%v)", id, err)
	}
	if err := a.SetIdentifier("p-8"); err != nil {
		t.Fatalf("SetIdentifier failed: %v", err)
	}
	if p.ID != "p-8" {
		t.Errorf("Expected ID p-8, got %q", p.ID)
	}

	v, err := a.Version()
	if err != nil || v != 2 {
		t.Fatalf("Version: expected 2, got %d (%v)", v, err)
	}
	if err := a.SetVersion(3); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	if p.Version != 3 {
		t.Errorf("Expected version 3, got %d", p.Version)
	}

	a.SetPriorVersion(2)
	if a.PriorVersion() != 2 {
		t.Errorf("Expected prior version 2, got %d", a.PriorVersion())
	}
}

func TestAccessUnversionedEntity(t *testing.T) {
	type plain struct {
		ID string `store:"ID,id"`
	}
	m, err := Describe(reflect.TypeOf(plain{}), "plains")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	a, _ := NewAccess(m, &plain{ID: "x"})

	if _, err := a.Version(); !storeerrors.IsValidation(err) {
		t.Errorf("Version on unversioned entity should fail validation, got %v", err)
	}
	if err := a.SetVersion(1); !storeerrors.IsValidation(err) {
		t.Errorf("SetVersion on unversioned entity should fail validation, got %v", err)
	}
}

func TestAccessPointerFields(t *testing.T) {
	type doc struct {
		ID    string          `store:"ID,id"`
		Title *string         `store:"Title"`
		At    *strfmt.DateTime `store:"At"`
	}
	m, err := Describe(reflect.TypeOf(doc{}), "docs")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	d := &doc{ID: "d-1"}
	a, _ := NewAccess(m, d)

	title, _ := m.Property("Title")
	got, err := a.Get(title)
	if err != nil || got != nil {
		t.Fatalf("Get on nil pointer field: expected nil, got %v (%v)", got, err)
	}

	if err := a.Set(title, "Rules of Play"); err != nil {
		t.Fatalf("Set(Title) failed: %v", err)
	}
	if d.Title == nil || *d.Title != "Rules of Play" {
		t.Errorf("Set should allocate the pointer field, got %v", d.Title)
	}

	// strfmt.DateTime fields move through Access as time.Time
	at, _ := m.Property("At")
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := a.Set(at, stamp); err != nil {
		t.Fatalf("Set(At) failed: %v", err)
	}
	got, err = a.Get(at)
	if err != nil {
		t.Fatalf("Get(At) failed: %v", err)
	}
	if ts, ok := got.(time.Time); !ok || !ts.Equal(stamp) {
		t.Errorf("Expected %v, got %v", stamp, got)
	}

	if err := a.Set(title, nil); err != nil {
		t.Fatalf("Set(Title, nil) failed: %v", err)
	}
	if d.Title != nil {
		t.Error("Setting nil should zero the pointer field")
	}
}

func TestAccessConversions(t *testing.T) {
	type counters struct {
		ID    string `store:"ID,id"`
		Small int32  `store:"Small"`
		Wide  uint16 `store:"Wide"`
	}
	m, err := Describe(reflect.TypeOf(counters{}), "counters")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	c := &counters{ID: "c"}
	a, _ := NewAccess(m, c)

	small, _ := m.Property("Small")
	if err := a.Set(small, int64(41)); err != nil {
		t.Fatalf("Set(Small, int64) failed: %v", err)
	}
	if c.Small != 41 {
		t.Errorf("Expected 41, got %d", c.Small)
	}

	// JSON decoding hands back float64 for numbers
	if err := a.Set(small, float64(42)); err != nil {
		t.Fatalf("Set(Small, float64) failed: %v", err)
	}
	if c.Small != 42 {
		t.Errorf("Expected 42, got %d", c.Small)
	}

	wide, _ := m.Property("Wide")
	if err := a.Set(wide, int64(7)); err != nil {
		t.Fatalf("Set(Wide) failed: %v", err)
	}
	got, err := a.Get(wide)
	if err != nil || got != int64(7) {
		t.Fatalf("Get(Wide): expected int64(7), got %v (%v)", got, err)
	}

	if err := a.Set(small, "nope"); !storeerrors.IsConversion(err) {
		t.Errorf("Expected conversion error, got %v", err)
	}
	if err := a.Set(small, float64(1.5)); !storeerrors.IsConversion(err) {
		t.Errorf("Fractional value into integer field should fail conversion, got %v", err)
	}
}

func TestAccessKeyListConversions(t *testing.T) {
	m := playerMeta(t)
	p := &player{ID: "p"}
	a, _ := NewAccess(m, p)
	clubs, _ := m.Property("ClubIDs")

	if err := a.Set(clubs, []string{"a", "b"}); err != nil {
		t.Fatalf("Set([]string) failed: %v", err)
	}
	if !reflect.DeepEqual(p.ClubIDs, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", p.ClubIDs)
	}

	// Decoded JSON arrives as []any
	if err := a.Set(clubs, []any{"x", "y"}); err != nil {
		t.Fatalf("Set([]any) failed: %v", err)
	}
	if !reflect.DeepEqual(p.ClubIDs, []string{"x", "y"}) {
		t.Errorf("Expected [x y], got %v", p.ClubIDs)
	}

	if err := a.Set(clubs, []int64{1, 2}); !storeerrors.IsConversion(err) {
		t.Errorf("Integer keys into string key list should fail conversion, got %v", err)
	}
}

func TestNewAccessValidation(t *testing.T) {
	m := playerMeta(t)

	if _, err := NewAccess(m, player{}); !storeerrors.IsValidation(err) {
		t.Errorf("Non-pointer entity should fail validation, got %v", err)
	}
	if _, err := NewAccess(m, (*player)(nil)); !storeerrors.IsValidation(err) {
		t.Errorf("Nil pointer should fail validation, got %v", err)
	}
	type other struct{ ID string }
	if _, err := NewAccess(m, &other{}); !storeerrors.IsValidation(err) {
		t.Errorf("Mismatched type should fail validation, got %v", err)
	}
}
