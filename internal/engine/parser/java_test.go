package parser

import (
	"overrides/internal/engine/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zooSource = `package com.zoo;

import java.util.List;
import java.io.*;
import static java.util.Collections.emptyList;

public class Dog extends Animal implements Comparable<Dog>, java.io.Serializable {
    public Dog() {}

    @Override
    public void speak() {}

    private static int count(List<String> names, int n) { return 0; }

    static class Tail implements Wagging {
        void wag() {}
    }
}

interface Wagging extends Runnable {
    void wag();
    default void stop() {}
    private void helper() {}
}

enum Size implements Wagging {
    SMALL, LARGE;

    public void wag() {}
}

record Point(int x, int y) implements Comparable<Point> {
    Point {}
    public int compareTo(Point o) { return 0; }
}
`

func extract(t *testing.T, src string) *JavaFile {
	t.Helper()
	tree, err := NewParserPool(JavaLanguage()).Parse([]byte(src))
	require.NoError(t, err)
	defer tree.Close()

	file, err := (&JavaExtractor{}).Extract(tree.RootNode(), []byte(src), "Zoo.java")
	require.NoError(t, err)
	return file
}

func typeByName(t *testing.T, f *JavaFile, name string) TypeSpec {
	t.Helper()
	for _, spec := range f.Types {
		if spec.Name == name {
			return spec
		}
	}
	t.Fatalf("type %s not extracted", name)
	return TypeSpec{}
}

func methodByName(t *testing.T, spec TypeSpec, name string) model.Method {
	t.Helper()
	for _, m := range spec.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s#%s not extracted", spec.Name, name)
	return model.Method{}
}

func TestJavaExtractor_PackageAndImports(t *testing.T) {
	f := extract(t, zooSource)

	assert.Equal(t, "com.zoo", f.Package)
	assert.NotZero(t, f.Hash)
	require.Len(t, f.Imports, 3)
	assert.Equal(t, Import{Path: "java.util.List", Line: 3}, f.Imports[0])
	assert.Equal(t, Import{Path: "java.io", OnDemand: true, Line: 4}, f.Imports[1])
	assert.Equal(t, Import{Path: "java.util.Collections.emptyList", Static: true, Line: 5}, f.Imports[2])
}

func TestJavaExtractor_TypesInSourceOrder(t *testing.T) {
	f := extract(t, zooSource)

	var names []string
	for _, spec := range f.Types {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"Dog", "Dog.Tail", "Wagging", "Size", "Point"}, names)
}

func TestJavaExtractor_Class(t *testing.T) {
	dog := typeByName(t, extract(t, zooSource), "Dog")

	assert.Equal(t, model.KindClass, dog.Kind)
	assert.Equal(t, "Animal", dog.Superclass)
	assert.Equal(t, []string{"Comparable", "java.io.Serializable"}, dog.Interfaces)
	assert.Equal(t, 7, dog.Line)

	// Declaration order is kept; the nested type's method does not leak out.
	require.Len(t, dog.Methods, 3)
	ctor := dog.Methods[0]
	assert.True(t, ctor.Constructor)
	assert.Equal(t, "Dog", ctor.Name)
	assert.True(t, ctor.Flags.Has(model.FlagPublic))

	speak := methodByName(t, dog, "speak")
	assert.Equal(t, model.FlagPublic, speak.Flags, "annotations must not become flags")
	assert.False(t, speak.Constructor)

	count := methodByName(t, dog, "count")
	assert.True(t, count.Flags.IsPrivate())
	assert.True(t, count.Flags.IsStatic())
	assert.Equal(t, "(List<String> names, int n)", count.Parameters)
	assert.Equal(t, 13, count.Line)
}

func TestJavaExtractor_NestedType(t *testing.T) {
	tail := typeByName(t, extract(t, zooSource), "Dog.Tail")

	assert.Equal(t, model.KindClass, tail.Kind)
	assert.Empty(t, tail.Superclass)
	assert.Equal(t, []string{"Wagging"}, tail.Interfaces)
	wag := methodByName(t, tail, "wag")
	assert.True(t, wag.Flags.IsPackagePrivate())
}

func TestJavaExtractor_InterfaceMembersArePublic(t *testing.T) {
	wagging := typeByName(t, extract(t, zooSource), "Wagging")

	assert.Equal(t, model.KindInterface, wagging.Kind)
	assert.Equal(t, []string{"Runnable"}, wagging.Interfaces)
	assert.True(t, methodByName(t, wagging, "wag").Flags.Has(model.FlagPublic))

	stop := methodByName(t, wagging, "stop")
	assert.True(t, stop.Flags.Has(model.FlagPublic))
	assert.True(t, stop.Flags.Has(model.FlagDefault))

	helper := methodByName(t, wagging, "helper")
	assert.True(t, helper.Flags.IsPrivate())
	assert.False(t, helper.Flags.Has(model.FlagPublic))
}

func TestJavaExtractor_EnumAndRecord(t *testing.T) {
	f := extract(t, zooSource)

	size := typeByName(t, f, "Size")
	assert.Equal(t, model.KindEnum, size.Kind)
	assert.Equal(t, []string{"Wagging"}, size.Interfaces)
	assert.True(t, methodByName(t, size, "wag").Flags.Has(model.FlagPublic))

	point := typeByName(t, f, "Point")
	assert.Equal(t, model.KindRecord, point.Kind)
	assert.Equal(t, []string{"Comparable"}, point.Interfaces)
	require.Len(t, point.Methods, 2)
	assert.True(t, point.Methods[0].Constructor)
	assert.Equal(t, "compareTo", point.Methods[1].Name)
}

func TestJavaExtractor_DefaultPackage(t *testing.T) {
	f := extract(t, "class Lonely { void work() {} }")

	assert.Empty(t, f.Package)
	require.Len(t, f.Types, 1)
	assert.Equal(t, model.TypeID("Lonely"), f.Types[0].Qualified(f.Package))
}

func TestJavaExtractor_RejectsNilTree(t *testing.T) {
	_, err := (&JavaExtractor{}).Extract(nil, nil, "Broken.java")
	assert.Error(t, err)
}

func TestStripTypeArguments(t *testing.T) {
	cases := map[string]string{
		"Comparable<Dog>":                  "Comparable",
		"Map<K, List<V>>.Entry":            "Map.Entry",
		"java.util.function.Function<A,B>": "java.util.function.Function",
		"Plain":                            "Plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, stripTypeArguments(in), in)
	}
}
