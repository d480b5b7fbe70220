package app

import (
	"context"
	"os"
	"overrides/internal/core/config"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func zooTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "com/zoo/Animal.java", `package com.zoo;
public abstract class Animal {
    public abstract void speak();
    void eat() {}
}
`)
	writeSource(t, root, "com/zoo/Dog.java", `package com.zoo;
import com.pets.Pet;
public class Dog extends Animal implements Pet {
    public void speak() {}
}
`)
	writeSource(t, root, "com/zoo/Puppy.java", `package com.zoo;
public class Puppy extends Dog {
    public void speak() {}
}
`)
	writeSource(t, root, "com/pets/Pet.java", `package com.pets;
public interface Pet {
    void speak();
}
`)
	writeSource(t, root, "com/wild/Cat.java", `package com.wild;
import com.zoo.Animal;
public class Cat extends Animal {
    public void speak() {}
    void eat() {}
}
`)
	return root
}

func testConfig(t *testing.T, root string, persist bool) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourcePaths = []string{root}
	cfg.Watch.Debounce = 50 * time.Millisecond
	cfg.DB.Enabled = persist
	cfg.DB.Path = filepath.Join(t.TempDir(), "hierarchy.db")
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func requireMethod(t *testing.T, got *model.Method, err error, want string) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, got, "expected %s", want)
	assert.Equal(t, want, got.String())
}

func TestApp_QueriesBeforeIndexFail(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), false))

	_, err := a.Overridden("com.zoo.Dog#speak", QueryOptions{})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err)
	assert.False(t, a.Status().Loaded)
}

func TestApp_IndexAndQuery(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), false))

	report, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Result.Files, 5)
	assert.Nil(t, report.Saved)

	got, err := a.Overridden("com.zoo.Puppy#speak", QueryOptions{})
	requireMethod(t, got, err, "com.zoo.Dog#speak")

	got, err = a.Overridden("com.zoo.Dog#speak()", QueryOptions{})
	requireMethod(t, got, err, "com.zoo.Animal#speak")

	got, err = a.Declaring("com.zoo.Puppy#speak", QueryOptions{})
	requireMethod(t, got, err, "com.zoo.Animal#speak")

	chain, err := a.Chain("com.zoo.Puppy#speak", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "com.zoo.Dog#speak", chain[0].String())
	assert.Equal(t, "com.zoo.Animal#speak", chain[1].String())

	got, err = a.Overriding("com.zoo.Dog", "com.pets.Pet#speak")
	requireMethod(t, got, err, "com.zoo.Dog#speak")

	got, err = a.Overridden("com.zoo.Animal#speak", QueryOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)

	st := a.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, SourceIndex, st.Source)
	assert.Equal(t, 5, st.Types)
}

func TestApp_VisibilityAcrossPackages(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), false))
	_, err := a.Index(context.Background())
	require.NoError(t, err)

	got, err := a.Overridden("com.wild.Cat#eat", QueryOptions{})
	requireMethod(t, got, err, "com.zoo.Animal#eat")

	got, err = a.Overridden("com.wild.Cat#eat", QueryOptions{TestVisibility: true})
	require.NoError(t, err)
	assert.Nil(t, got, "package-private method is not visible from com.wild")

	got, err = a.Overridden("com.wild.Cat#eat", QueryOptions{TestVisibility: true, Focus: "com.zoo.Dog"})
	requireMethod(t, got, err, "com.zoo.Animal#eat")
}

func TestApp_Lookups(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), false))
	_, err := a.Index(context.Background())
	require.NoError(t, err)

	info, err := a.LookupType("com.zoo.Dog")
	require.NoError(t, err)
	assert.Equal(t, model.KindClass, info.Kind)
	assert.Equal(t, []model.TypeID{"com.zoo.Animal", "com.pets.Pet"}, info.Supertypes)
	assert.Equal(t, 3, info.Line)

	_, err = a.LookupType("com.zoo.Missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err)

	m, err := a.LookupMethod("com.zoo.Animal#eat")
	require.NoError(t, err)
	assert.True(t, m.Flags.IsPackagePrivate())

	_, err = a.LookupMethod("com.zoo.Animal#sleep")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err)

	for _, ref := range []string{"", "com.zoo.Animal", "#speak", "com.zoo.Animal#"} {
		_, err = a.LookupMethod(ref)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError), "ref %q: %v", ref, err)
	}
}

func TestParseMethodRef(t *testing.T) {
	typ, name, err := ParseMethodRef("  com.zoo.Dog#speak(int, String) ")
	require.NoError(t, err)
	assert.Equal(t, model.TypeID("com.zoo.Dog"), typ)
	assert.Equal(t, "speak", name)
}

func TestApp_PersistAndUseStored(t *testing.T) {
	root := zooTree(t)
	cfg := testConfig(t, root, true)

	a := newApp(t, cfg)
	first, err := a.Index(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.Saved)
	assert.Equal(t, first.Saved.ID, a.Status().SnapshotID)

	again, err := a.Index(context.Background())
	require.NoError(t, err)
	require.NotNil(t, again.Saved)
	assert.Equal(t, first.Saved.ID, again.Saved.ID, "unchanged sources reuse the stored snapshot")
	require.NoError(t, a.Close())

	reader := newApp(t, cfg)
	info, err := reader.UseStored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Saved.ID, info.ID)

	st := reader.Status()
	assert.Equal(t, SourceStore, st.Source)
	assert.Equal(t, -1, st.Types)

	got, err := reader.Declaring("com.zoo.Puppy#speak", QueryOptions{})
	requireMethod(t, got, err, "com.zoo.Animal#speak")

	typeInfo, err := reader.LookupType("com.zoo.Puppy")
	require.NoError(t, err)
	assert.Equal(t, []model.TypeID{"com.zoo.Dog"}, typeInfo.Supertypes)
	assert.Empty(t, typeInfo.Kind)

	_, err = reader.LookupType("com.zoo.Missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err)
}

func TestApp_UseStoredRequiresStore(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), false))
	_, err := a.UseStored(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported), err)
}

func TestApp_UseStoredWithoutSnapshots(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), true))
	_, err := a.UseStored(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err)
}

func TestApp_ClosedStoreSurfacesBackingError(t *testing.T) {
	cfg := testConfig(t, zooTree(t), true)
	writer := newApp(t, cfg)
	_, err := writer.Index(context.Background())
	require.NoError(t, err)

	reader := newApp(t, cfg)
	_, err = reader.UseStored(context.Background())
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	_, err = reader.Overridden("com.zoo.Puppy#speak", QueryOptions{})
	assert.True(t, errors.IsCode(err, errors.CodeModelBacking), err)

	_, err = reader.Index(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeConflict), err)
}

func TestHealthService(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), true))
	health := NewHealthService(a)

	status := health.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "missing", status.Components["hierarchy"])

	_, err := a.Index(context.Background())
	require.NoError(t, err)

	status = health.Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok (5 types, index)", status.Components["hierarchy"])
	assert.Equal(t, "ok", status.Components["store"])
}

func TestApp_ConcurrentQueriesDuringReindex(t *testing.T) {
	a := newApp(t, testConfig(t, zooTree(t), false))
	_, err := a.Index(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := a.Declaring("com.zoo.Puppy#speak", QueryOptions{})
				if assert.NoError(t, err) && assert.NotNil(t, got) {
					assert.Equal(t, "com.zoo.Animal#speak", got.String())
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		_, err := a.Index(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestApp_WatchReindexesOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := zooTree(t)
	a, err := New(testConfig(t, root, false))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Index(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func(_ *IndexReport, _ []string, err error) {
			updates <- err
		})
	}()

	// Give the watcher time to register directories.
	time.Sleep(200 * time.Millisecond)
	writeSource(t, root, "com/zoo/Puppy.java", `package com.zoo;
public class Puppy extends Animal {
    public void speak() {}
}
`)

	timeout := time.After(5 * time.Second)
	for reparented := false; !reparented; {
		select {
		case err := <-updates:
			require.NoError(t, err)
			got, err := a.Overridden("com.zoo.Puppy#speak", QueryOptions{})
			require.NoError(t, err)
			reparented = got != nil && got.String() == "com.zoo.Animal#speak"
		case <-timeout:
			t.Fatal("timed out waiting for re-index")
		}
	}

	cancel()
	require.NoError(t, <-done)
}
