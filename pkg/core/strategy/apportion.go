package strategy

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// weightScale точность весов: веса переводятся в целые единицы 1e-6,
// чтобы распределение не зависело от ошибок округления float64.
const weightScale = 1e6

// Apportion распределяет n единиц между корзинами пропорционально весам
// методом наибольших остатков. Сумма результата всегда равна n.
// При равных остатках лишние единицы получают корзины, объявленные раньше.
func Apportion(weights []float64, n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative count %d", n)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("no buckets to apportion")
	}

	units := make([]uint64, len(weights))
	var total uint64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("weight #%d must be a non-negative number, got %v", i+1, w)
		}
		u := uint64(math.Round(w * weightScale))
		if u == 0 && w > 0 {
			u = 1
		}
		units[i] = u
		if total+u < total {
			return nil, fmt.Errorf("weights are too large")
		}
		total += u
	}
	if total == 0 {
		return nil, fmt.Errorf("weights must have a positive sum")
	}

	counts := make([]int, len(weights))
	remainders := make([]uint64, len(weights))
	assigned := 0
	for i, u := range units {
		// n*u/total без переполнения
		hi, lo := bits.Mul64(uint64(n), u)
		q, r := bits.Div64(hi, lo, total)
		counts[i] = int(q)
		remainders[i] = r
		assigned += int(q)
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})

	for k := 0; assigned < n; k++ {
		counts[order[k%len(order)]]++
		assigned++
	}
	return counts, nil
}
