/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storekit

import (
	"context"
	"fmt"
	"testing"

	"github.com/suparena/storekit/adapter/memory"
	storeerrors "github.com/suparena/storekit/errors"
	"github.com/suparena/storekit/persister"
)

type testUser struct {
	ID    string `store:"ID,id"`
	Name  string
	Email string `store:"Email,index"`
}

type testProduct struct {
	ID    string `store:"ID,id"`
	Name  string
	Price float64
}

func newUserStore(t *testing.T) *Store[testUser, string] {
	t.Helper()
	st, err := New[testUser]("test-users", memory.New(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return st
}

func TestStores(t *testing.T) {
	t.Run("BasicOperations", func(t *testing.T) {
		stores := NewStores()

		if err := stores.Register("users", newUserStore(t)); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		retrieved, err := stores.Get("users")
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if retrieved == nil {
			t.Fatal("Retrieved store is nil")
		}

		names := stores.List()
		if len(names) != 1 || names[0] != "users" {
			t.Fatalf("Expected [users], got %v", names)
		}

		if err := stores.Remove("users"); err != nil {
			t.Fatalf("Failed to remove: %v", err)
		}
		if _, err := stores.Get("users"); err == nil {
			t.Fatal("Expected error after removal")
		}
		if err := stores.Remove("users"); err == nil {
			t.Fatal("Expected error removing an absent store")
		}
	})

	t.Run("DuplicateRegistration", func(t *testing.T) {
		stores := NewStores()

		if err := stores.Register("users", newUserStore(t)); err != nil {
			t.Fatalf("First registration failed: %v", err)
		}
		if err := stores.Register("users", newUserStore(t)); err == nil {
			t.Fatal("Expected duplicate registration error")
		}
	})
}

func TestTypedStoreAccess(t *testing.T) {
	stores := NewStores()

	if err := RegisterStore(stores, "users", newUserStore(t)); err != nil {
		t.Fatalf("RegisterStore failed: %v", err)
	}

	st, err := GetStore[testUser, string](stores, "users")
	if err != nil {
		t.Fatalf("GetStore failed: %v", err)
	}
	if st == nil {
		t.Fatal("GetStore returned nil")
	}

	// The registered store holds testUser, not testProduct
	if _, err := GetStore[testProduct, string](stores, "users"); err == nil {
		t.Error("Expected type mismatch error")
	}
	if _, err := GetStore[testUser, int64](stores, "users"); err == nil {
		t.Error("Expected key type mismatch error")
	}
	if _, err := GetStore[testUser, string](stores, "missing"); err == nil {
		t.Error("Expected error for unknown name")
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	st, err := New[testUser]("test-users", memory.New(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if st.Meta().Family != "test-users" {
		t.Errorf("Expected family test-users, got %q", st.Meta().Family)
	}

	key, err := st.Put(ctx, &testUser{Name: "Lena", Email: "lena@example.com"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := st.GetOne(ctx, key)
	if err != nil {
		t.Fatalf("GetOne failed: %v", err)
	}
	if got == nil || got.Name != "Lena" {
		t.Errorf("Expected stored user back, got %+v", got)
	}

	// The mapping survives in the registry; a conflicting family is rejected
	if _, err := New[testUser]("other-family", memory.New(), nil); !storeerrors.IsValidation(err) {
		t.Errorf("Expected validation error for conflicting family, got %v", err)
	}
}

func TestNewStoreTypeCheck(t *testing.T) {
	st, err := New[testUser]("test-users", memory.New(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// A persister mapping testUser cannot back a testProduct store
	core := anyCore(st)
	if _, err := NewStore[testProduct, string](core); !storeerrors.IsValidation(err) {
		t.Errorf("Expected validation error for mismatched entity type, got %v", err)
	}
	if _, err := NewStore[testUser, string](nil); !storeerrors.IsValidation(err) {
		t.Errorf("Expected validation error for nil persister, got %v", err)
	}
}

func anyCore(st *Store[testUser, string]) persister.Core[string] {
	return st.core
}

func TestStoresThreadSafety(t *testing.T) {
	stores := NewStores()
	st := newUserStore(t)
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(id int) {
			_ = stores.Register(fmt.Sprintf("store%d", id), st)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		go func() {
			stores.List()
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	if names := stores.List(); len(names) != 10 {
		t.Fatalf("Expected 10 stores, got %d", len(names))
	}
}
