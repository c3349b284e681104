package tags

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type badText struct{}

func (badText) MarshalText() ([]byte, error) { return nil, errors.New("cannot convert") }

type named struct{}

func (named) String() string { return "named" }

func TestText(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		want    string
		wantErr bool
	}{
		{"string", String("GoPro"), "GoPro", false},
		{"number", Number(37.5), "37.5", false},
		{"integral number", Number(100), "100", false},
		{"numbers", Numbers(37, 46, 26.2992), "37 46 26.2992", false},
		{"stringer", Opaque(named{}), "named", false},
		{"plain opaque", Opaque(true), "true", false},
		{"nil opaque", Opaque(nil), "", true},
		{"failing marshaler", Opaque(badText{}), "", true},
		{"zero value", Value{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.Text()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessorsRejectMismatchedKinds(t *testing.T) {
	_, ok := Number(1).Str()
	assert.False(t, ok)

	_, ok = String("1").Float()
	assert.False(t, ok)

	_, ok = Numbers(1, 2).Triple()
	assert.False(t, ok)

	_, ok = Number(1).Triple()
	assert.False(t, ok)

	f, ok := Numbers(7).Float()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	triple, ok := Numbers(1, 2, 3, 4).Triple()
	assert.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, triple)
}

func TestNumbersCopiesInput(t *testing.T) {
	in := []float64{1, 2, 3}
	v := Numbers(in...)
	in[0] = 99
	triple, ok := v.Triple()
	require.True(t, ok)
	assert.Equal(t, 1.0, triple[0])
}

func TestFromAny(t *testing.T) {
	assert.Equal(t, KindString, FromAny("x").Kind())
	assert.Equal(t, KindNumber, FromAny(float64(3)).Kind())
	assert.Equal(t, KindNumbers, FromAny([]any{1.0, 2.0, 3.0}).Kind())
	assert.Equal(t, KindOpaque, FromAny([]any{"a"}).Kind())
	assert.Equal(t, KindOpaque, FromAny(map[string]any{}).Kind())
	assert.Equal(t, KindOpaque, FromAny(nil).Kind())
}

func TestFirst(t *testing.T) {
	tg := Tags{"Keys:Make": String("Apple"), "Make": String("GoPro")}

	name, v, ok := tg.First("QuickTime:Make", "Make", "Keys:Make")
	require.True(t, ok)
	assert.Equal(t, "Make", name)
	s, _ := v.Str()
	assert.Equal(t, "GoPro", s)

	_, _, ok = tg.First("Model")
	assert.False(t, ok)

	var empty Tags
	_, _, ok = empty.First("Make")
	assert.False(t, ok)
	assert.False(t, empty.Has("Make"))
}
