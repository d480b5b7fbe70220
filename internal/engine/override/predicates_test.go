package override

import (
	"overrides/internal/engine/model"
	"testing"
)

func TestIsOverridable(t *testing.T) {
	cases := []struct {
		name   string
		method model.Method
		want   bool
	}{
		{"public", m("run", "public"), true},
		{"package-private", m("run"), true},
		{"abstract", m("run", "protected", "abstract"), true},
		{"private", m("run", "private"), false},
		{"static", m("run", "public", "static"), false},
		{"constructor", model.Method{Name: "Dog", Flags: model.FlagPublic, Constructor: true}, false},
	}
	for _, tc := range cases {
		if got := IsOverridable(tc.method); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsSubsignature_ComparesNamesOnly(t *testing.T) {
	a := model.Method{DeclaringType: "A", Name: "put", Parameters: "(int)"}
	b := model.Method{DeclaringType: "B", Name: "put", Parameters: "(String, int)", Flags: model.FlagStatic}
	if !IsSubsignature(a, b) || !IsSubsignature(b, a) {
		t.Fatal("expected same-named methods to match regardless of parameters")
	}
	if IsSubsignature(a, model.Method{Name: "get"}) {
		t.Fatal("expected different names not to match")
	}
}

func TestPackageVisibility(t *testing.T) {
	v := PackageVisibility{}
	cases := []struct {
		name   string
		method model.Method
		from   model.TypeID
		want   bool
	}{
		{"public elsewhere", model.Method{DeclaringType: "lib.A", Flags: model.FlagPublic}, "app.B", true},
		{"protected elsewhere", model.Method{DeclaringType: "lib.A", Flags: model.FlagProtected}, "app.B", true},
		{"package same", model.Method{DeclaringType: "lib.A"}, "lib.B", true},
		{"package elsewhere", model.Method{DeclaringType: "lib.A"}, "app.B", false},
		{"private own type", model.Method{DeclaringType: "lib.A", Flags: model.FlagPrivate}, "lib.A", true},
		{"private same package", model.Method{DeclaringType: "lib.A", Flags: model.FlagPrivate}, "lib.B", false},
	}
	for _, tc := range cases {
		if got := v.IsVisible(tc.method, tc.from); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
