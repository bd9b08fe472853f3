package schema

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestViewKeysSortedAndExplicitOnly(t *testing.T) {
	v := NewView(nil, map[string]any{"b": 1, "a": 2, "c": 3}, zerolog.Nop())
	got := v.Keys()
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestViewKeysEmptyForNilRaw(t *testing.T) {
	v := NewView(nil, nil, zerolog.Nop())
	if got := v.Keys(); len(got) != 0 {
		t.Errorf("Keys() = %v, want empty", got)
	}
}
