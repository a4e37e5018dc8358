package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDice(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"DIPIRONA", "DIPIRONA", 1},
		{"A B", "AB", 1},
		{"", "X", 0},
		{"", "", 0},
		{"A", "B", 0},
		{"NIGHT", "NACHT", 0.25},
		{"500MG", "750MG", 0.75},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, Dice(c.a, c.b), 1e-9, "%q vs %q", c.a, c.b)
		assert.InDelta(t, Dice(c.a, c.b), Dice(c.b, c.a), 1e-9, "symmetry %q vs %q", c.a, c.b)
	}
}

func TestDice_RepeatedBigramsCountedOnce(t *testing.T) {
	// у "AAAA" три биграммы AA, у "AA" одна: общая только одна
	assert.InDelta(t, 2.0/4.0, Dice("AAAA", "AA"), 1e-9)
}
