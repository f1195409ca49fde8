package index

import (
	"errors"
	"testing"

	"dewey/internal/errkind"
)

func TestEnumerationLearnAndSearch(t *testing.T) {
	e := NewEnumeration("isdir", "true", "false")
	mustLearn(t, e, 1, "true")
	mustLearn(t, e, 2, "false")
	mustLearn(t, e, 3, "true")

	got := searchRids(t, e, "is_", "true")
	if !equalRids(got, []int32{1, 3}) {
		t.Errorf("got %v, want [1 3]", got)
	}
}

func TestEnumerationRejectsUnlistedValue(t *testing.T) {
	e := NewEnumeration("color", "red", "green", "blue")
	if err := e.Learn(1, "purple"); !errors.Is(err, errkind.ErrBadValue) {
		t.Errorf("expected ErrBadValue, got %v", err)
	}
}

func TestEnumerationDefault(t *testing.T) {
	e := NewEnumeration("color", "red", "green").WithDefault("green")
	mustLearn(t, e, 1, nil)

	got := searchRids(t, e, "is_", "green")
	if !equalRids(got, []int32{1}) {
		t.Errorf("expected default value applied, got %v", got)
	}
}

func TestEnumerationNilWithoutDefaultErrors(t *testing.T) {
	e := NewEnumeration("color", "red", "green")
	if err := e.Learn(1, nil); !errors.Is(err, errkind.ErrBadValue) {
		t.Errorf("expected ErrBadValue for nil without default, got %v", err)
	}
}

func TestEnumerationWithDefaultPanicsOnUnlistedDefault(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for default not in allowed values")
		}
	}()
	NewEnumeration("color", "red", "green").WithDefault("purple")
}

func TestEnumerationIn(t *testing.T) {
	e := NewEnumeration("color", "red", "green", "blue")
	mustLearn(t, e, 1, "red")
	mustLearn(t, e, 2, "green")
	mustLearn(t, e, 3, "blue")

	tests := []struct {
		arg  string
		want []int32
	}{
		{"red, blue", []int32{1, 3}},
		{"[red, green]", []int32{1, 2}},
		{"(blue)", []int32{3}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got := searchRids(t, e, "in_", tt.arg)
			if !equalRids(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnumerationRelearnReplacesValue(t *testing.T) {
	e := NewEnumeration("color", "red", "green")
	mustLearn(t, e, 1, "red")
	mustLearn(t, e, 1, "green")

	if got := searchRids(t, e, "is_", "red"); len(got) != 0 {
		t.Errorf("expected old value gone after re-learn, got %v", got)
	}
	if got := searchRids(t, e, "is_", "green"); !equalRids(got, []int32{1}) {
		t.Errorf("expected new value learned, got %v", got)
	}
}

func TestEnumerationForget(t *testing.T) {
	e := NewEnumeration("color", "red", "green")
	mustLearn(t, e, 1, "red")

	if err := e.Forget(1); err != nil {
		t.Fatalf("Forget(1) error = %v", err)
	}
	if err := e.Forget(1); !errors.Is(err, errkind.ErrUnknownRid) {
		t.Errorf("expected ErrUnknownRid on double forget, got %v", err)
	}
}

func TestEnumerationUnknownSearch(t *testing.T) {
	e := NewEnumeration("color", "red")
	if _, err := e.Search("startswith", "r"); !errors.Is(err, errkind.ErrBadQuery) {
		t.Errorf("expected ErrBadQuery, got %v", err)
	}
}
