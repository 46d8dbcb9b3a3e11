package strategy

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestApportion(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		n        int
		expected []int
	}{
		{"equal tie goes to first", []float64{50, 50}, 5, []int{3, 2}},
		{"exact", []float64{20, 30, 50}, 10, []int{2, 3, 5}},
		{"not summing to 100", []float64{1, 1, 1}, 10, []int{4, 3, 3}},
		{"largest remainder", []float64{10, 25, 65}, 7, []int{1, 2, 4}},
		{"zero weight bucket", []float64{0, 1}, 3, []int{0, 3}},
		{"zero count", []float64{3, 7}, 0, []int{0, 0}},
		{"fractional weights", []float64{0.1, 0.2, 0.7}, 10, []int{1, 2, 7}},
		{"more buckets than count", []float64{1, 1, 1, 1}, 2, []int{1, 1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apportion(tt.weights, tt.n)
			if err != nil {
				t.Fatalf("Apportion failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestApportion_SumAlwaysN(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for iter := 0; iter < 500; iter++ {
		weights := make([]float64, 1+rng.IntN(8))
		for i := range weights {
			weights[i] = rng.Float64() * 1000
		}
		weights[0] += 0.5
		n := rng.IntN(10000)

		counts, err := Apportion(weights, n)
		if err != nil {
			t.Fatalf("Apportion(%v, %d) failed: %v", weights, n, err)
		}
		sum := 0
		for _, c := range counts {
			if c < 0 {
				t.Fatalf("negative count in %v", counts)
			}
			sum += c
		}
		if sum != n {
			t.Fatalf("Apportion(%v, %d) sums to %d", weights, n, sum)
		}
	}
}

func TestApportion_Errors(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		n       int
	}{
		{"no buckets", nil, 5},
		{"negative weight", []float64{1, -1}, 5},
		{"zero total", []float64{0, 0}, 5},
		{"negative count", []float64{1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apportion(tt.weights, tt.n); err == nil {
				t.Error("expected error")
			}
		})
	}
}
