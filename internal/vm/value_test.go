package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_Falsey(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"nil", NilVal(), true},
		{"false", BoolVal(false), true},
		{"true", BoolVal(true), false},
		{"zero", NumberVal(0), false},
		{"nan", NumberVal(math.NaN()), false},
		{"string", StringVal(StringRef{Handle{index: 0, gen: 1}}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.IsFalsey())
		})
	}
}

func TestValue_Equals(t *testing.T) {
	s1 := StringVal(StringRef{Handle{index: 1, gen: 1}})
	s2 := StringVal(StringRef{Handle{index: 2, gen: 1}})
	fn := FunctionVal(FunctionRef{Handle{index: 1, gen: 1}})

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil", NilVal(), NilVal(), true},
		{"bools", BoolVal(true), BoolVal(true), true},
		{"different bools", BoolVal(true), BoolVal(false), false},
		{"numbers", NumberVal(1.5), NumberVal(1.5), true},
		{"nan", NumberVal(math.NaN()), NumberVal(math.NaN()), false},
		{"signed zero", NumberVal(0), NumberVal(math.Copysign(0, -1)), true},
		{"same handle", s1, s1, true},
		{"different handle", s1, s2, false},
		{"cross tag same handle", s1, fn, false},
		{"nil vs false", NilVal(), BoolVal(false), false},
		{"zero vs false", NumberVal(0), BoolVal(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equals(tt.b))
		})
	}
}

func TestValue_AccessorPanicsOnWrongType(t *testing.T) {
	assert.Panics(t, func() { NilVal().AsNumber() })
	assert.Panics(t, func() { NumberVal(1).AsString() })
	assert.NotPanics(t, func() { NumberVal(1).AsNumber() })
	assert.Equal(t, 2.5, NumberVal(2.5).AsNumber())
	assert.True(t, BoolVal(true).AsBool())
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{7, "7"},
		{1.5, "1.5"},
		{-3, "-3"},
		{0.1 + 0.2, "0.3"},
		{100000, "100000"},
		{1000000, "1e+06"},
		{123456789, "1.23457e+08"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1.0 / 3, "0.333333"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in), "%v", tt.in)
	}
}
