package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "creds.db"))
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bolt,
	}
}

// TestStores runs the shared contract against every implementation.
func TestStores(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()
			data := []byte(`{"token":"dXNlcjpwYXNz"}`)

			t.Run("SaveLoad", func(t *testing.T) {
				if err := store.Save(ctx, KeyToken, data, time.Now().Add(time.Minute)); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
				loaded, err := store.Load(ctx, KeyToken)
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if string(loaded) != string(data) {
					t.Errorf("Load = %s, want %s", loaded, data)
				}
			})

			t.Run("LoadMissing", func(t *testing.T) {
				loaded, err := store.Load(ctx, "missing")
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if loaded != nil {
					t.Error("Load returned data for a missing key")
				}
			})

			t.Run("NoExpiry", func(t *testing.T) {
				if err := store.Save(ctx, KeyAuthMethod, []byte("Basic"), NoExpiry); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
				loaded, _ := store.Load(ctx, KeyAuthMethod)
				if string(loaded) != "Basic" {
					t.Errorf("Load = %q, want Basic", loaded)
				}
			})

			t.Run("Expired", func(t *testing.T) {
				if err := store.Save(ctx, "old", []byte("x"), time.Now().Add(-time.Second)); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
				loaded, err := store.Load(ctx, "old")
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if loaded != nil {
					t.Error("Load returned expired data")
				}
			})

			t.Run("Delete", func(t *testing.T) {
				if err := store.Delete(ctx, KeyToken); err != nil {
					t.Fatalf("Delete failed: %v", err)
				}
				loaded, _ := store.Load(ctx, KeyToken)
				if loaded != nil {
					t.Error("value still present after Delete")
				}
				if err := store.Delete(ctx, KeyToken); err != nil {
					t.Errorf("Delete of missing key failed: %v", err)
				}
			})

			t.Run("Closed", func(t *testing.T) {
				if err := store.Close(); err != nil {
					t.Fatalf("Close failed: %v", err)
				}
				if err := store.Close(); err != nil {
					t.Errorf("second Close failed: %v", err)
				}
				if err := store.Save(ctx, "k", nil, NoExpiry); err == nil {
					t.Error("Save after Close should fail")
				} else if _, ok := err.(ErrStoreClosed); !ok {
					t.Errorf("Save after Close error = %T, want ErrStoreClosed", err)
				}
				if _, err := store.Load(ctx, "k"); err == nil {
					t.Error("Load after Close should fail")
				}
			})
		})
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := NewMemoryStore(WithCleanupInterval(10 * time.Millisecond))
	defer store.Close()

	ctx := context.Background()
	store.Save(ctx, "short", []byte("x"), time.Now().Add(5*time.Millisecond))
	store.Save(ctx, "long", []byte("y"), NoExpiry)

	time.Sleep(50 * time.Millisecond)

	if got := store.Count(); got != 1 {
		t.Errorf("Count = %d, want 1 after cleanup", got)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	data := []byte("abc")
	store.Save(ctx, "k", data, NoExpiry)
	data[0] = 'z'

	loaded, _ := store.Load(ctx, "k")
	if string(loaded) != "abc" {
		t.Errorf("stored data was aliased: %q", loaded)
	}
}

func TestMemoryStoreConcurrency(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			store.Save(ctx, key, []byte{byte(i)}, NoExpiry)
			store.Load(ctx, key)
			store.Delete(ctx, key)
		}(i)
	}
	wg.Wait()
}

func TestBoltStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")
	ctx := context.Background()

	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}
	cred := CachedCredential{Token: "dXNlcjpwYXNz", Username: "user"}
	if err := SaveCredential(ctx, store, cred, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	store.Close()

	store, err = NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	got, err := LoadCredential(ctx, store)
	if err != nil {
		t.Fatalf("LoadCredential failed: %v", err)
	}
	if got == nil {
		t.Fatal("credential lost across reopen")
	}
	if got.Token != cred.Token || got.Username != cred.Username {
		t.Errorf("LoadCredential = %+v, want %+v", got, cred)
	}
	if got.Version != CurrentSerializationVersion {
		t.Errorf("Version = %d, want %d", got.Version, CurrentSerializationVersion)
	}
}

func TestLoadCredentialCorrupt(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	store.Save(ctx, KeyToken, []byte("not json"), NoExpiry)

	got, err := LoadCredential(ctx, store)
	if err != nil {
		t.Fatalf("LoadCredential failed: %v", err)
	}
	if got != nil {
		t.Errorf("LoadCredential = %+v, want nil", got)
	}

	if err := ForgetCredential(ctx, store); err != nil {
		t.Fatalf("ForgetCredential failed: %v", err)
	}
	if data, _ := store.Load(ctx, KeyToken); data != nil {
		t.Error("credential still present after ForgetCredential")
	}
}
