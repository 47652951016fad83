/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

type profile struct {
	ID      string    `store:"ID,id"`
	Handle  string    `store:"Handle,index"`
	Age     int64     `store:"Age"`
	Weight  float64   `store:"Weight"`
	Active  bool      `store:"Active"`
	Joined  time.Time `store:"Joined"`
	Avatar  []byte    `store:"Avatar"`
	Friends []string  `store:"Friends,assoc=profiles"`
}

func profileMeta(t *testing.T) *entity.PersistentEntity {
	t.Helper()
	m, err := entity.Describe(reflect.TypeOf(profile{}), "profiles")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	return m
}

func TestDocumentRoundTrip(t *testing.T) {
	a := &Adapter{}
	meta := profileMeta(t)
	joined := time.Date(2025, 3, 15, 10, 30, 0, 250_000_000, time.UTC)

	cases := []struct {
		prop  string
		value any
	}{
		{"Handle", "ada"},
		{"Age", int64(37)},
		{"Weight", 61.5},
		{"Active", true},
		{"Joined", joined},
		{"Avatar", []byte{0x89, 0x50}},
		{"Friends", []string{"p-1", "p-2"}},
	}

	for _, tc := range cases {
		t.Run(tc.prop, func(t *testing.T) {
			p, ok := meta.Property(tc.prop)
			if !ok {
				t.Fatalf("no property %s", tc.prop)
			}
			entry := a.CreateNewEntry(meta)
			if err := a.SetEntryValue(entry, p, tc.value); err != nil {
				t.Fatalf("SetEntryValue failed: %v", err)
			}
			got, err := a.GetEntryValue(entry, p)
			if err != nil {
				t.Fatalf("GetEntryValue failed: %v", err)
			}
			if ts, ok := tc.value.(time.Time); ok {
				// BSON dates carry millisecond precision.
				if !ts.Truncate(time.Millisecond).Equal(got.(time.Time)) {
					t.Errorf("Expected %v, got %v", ts.Truncate(time.Millisecond), got)
				}
				return
			}
			if !reflect.DeepEqual(tc.value, got) {
				t.Errorf("Expected %#v, got %#v", tc.value, got)
			}
		})
	}
}

func TestGetEntryValueDecodedForms(t *testing.T) {
	a := &Adapter{}
	meta := profileMeta(t)

	t.Run("Int32", func(t *testing.T) {
		p, _ := meta.Property("Age")
		got, err := a.GetEntryValue(Entry{"Age": int32(37)}, p)
		if err != nil {
			t.Fatalf("GetEntryValue failed: %v", err)
		}
		if got != int64(37) {
			t.Errorf("Expected int64(37), got %#v", got)
		}
	})

	t.Run("DateTime", func(t *testing.T) {
		p, _ := meta.Property("Joined")
		joined := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
		got, err := a.GetEntryValue(Entry{"Joined": primitive.NewDateTimeFromTime(joined)}, p)
		if err != nil {
			t.Fatalf("GetEntryValue failed: %v", err)
		}
		if !joined.Equal(got.(time.Time)) {
			t.Errorf("Expected %v, got %v", joined, got)
		}
	})

	t.Run("Binary", func(t *testing.T) {
		p, _ := meta.Property("Avatar")
		got, err := a.GetEntryValue(Entry{"Avatar": primitive.Binary{Data: []byte{1, 2}}}, p)
		if err != nil {
			t.Fatalf("GetEntryValue failed: %v", err)
		}
		if !reflect.DeepEqual([]byte{1, 2}, got) {
			t.Errorf("Expected [1 2], got %#v", got)
		}
	})

	t.Run("Array", func(t *testing.T) {
		p, _ := meta.Property("Friends")
		got, err := a.GetEntryValue(Entry{"Friends": primitive.A{"p-1", "p-2"}}, p)
		if err != nil {
			t.Fatalf("GetEntryValue failed: %v", err)
		}
		if !reflect.DeepEqual([]string{"p-1", "p-2"}, got) {
			t.Errorf("Expected [p-1 p-2], got %#v", got)
		}
	})

	t.Run("ArrayWrongElement", func(t *testing.T) {
		p, _ := meta.Property("Friends")
		_, err := a.GetEntryValue(Entry{"Friends": primitive.A{"p-1", 7}}, p)
		if !storeerrors.IsConversion(err) {
			t.Errorf("Expected ConversionError, got %v", err)
		}
	})
}

func TestDocumentKeyedByID(t *testing.T) {
	doc := document("p-1", Entry{"Handle": "ada"})
	if doc["_id"] != "p-1" {
		t.Errorf("Expected _id p-1, got %v", doc["_id"])
	}
	if doc["Handle"] != "ada" {
		t.Errorf("Expected Handle ada, got %v", doc["Handle"])
	}
}

func TestConcernOf(t *testing.T) {
	cases := []struct {
		in   adapter.WriteConcern
		want any
	}{
		{adapter.Acknowledged, 1},
		{adapter.Unacknowledged, 0},
		{adapter.Majority, "majority"},
	}
	for _, tc := range cases {
		t.Run(tc.in.String(), func(t *testing.T) {
			wc := concernOf(tc.in)
			if wc == nil {
				t.Fatal("Expected a write concern")
			}
			if wc.W != tc.want {
				t.Errorf("Expected W=%v, got %v", tc.want, wc.W)
			}
		})
	}
}

func TestOrderedStop(t *testing.T) {
	errs := []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Index: 3}},
	}
	if stop := orderedStop(5, errs); stop != 3 {
		t.Errorf("Expected stop 3, got %d", stop)
	}
	if stop := orderedStop(5, nil); stop != 5 {
		t.Errorf("Expected stop 5 with no write errors, got %d", stop)
	}
}

func TestGenerateIdentifier(t *testing.T) {
	a := &Adapter{}
	meta := profileMeta(t)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := a.GenerateIdentifier(context.Background(), meta)
		if err != nil {
			t.Fatalf("GenerateIdentifier failed: %v", err)
		}
		if id == "" || seen[id] {
			t.Fatalf("Expected fresh non-empty identifier, got %q", id)
		}
		seen[id] = true
	}
}
