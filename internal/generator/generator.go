// Package generator разбивает целевую сумму копилки на набор плиток:
// положительные суммы, в точности дающие цель, с номиналами,
// подобранными под масштаб цели, в случайном порядке.
package generator

import (
	"math/rand"
	"time"
)

// denominationTier связывает верхнюю границу цели с набором номиналов.
// Чем больше цель, тем крупнее куски, чтобы число плиток оставалось
// пригодным для сетки.
type denominationTier struct {
	maxGoal int64
	denoms  []int64 // по возрастанию
}

var tiers = []denominationTier{
	{maxGoal: 100, denoms: []int64{1, 2, 3, 5, 10}},
	{maxGoal: 500, denoms: []int64{5, 10, 15, 20, 25}},
	{maxGoal: 1000, denoms: []int64{10, 15, 20, 25, 50}},
	{maxGoal: 5000, denoms: []int64{25, 50, 75, 100, 150, 200}},
	{maxGoal: 10000, denoms: []int64{50, 100, 150, 200, 250, 300, 500}},
}

// Набор для целей свыше 10000.
var largeDenoms = []int64{100, 200, 250, 500, 750, 1000}

const (
	// Ориентир числа плиток: не жесткое ограничение, а смещение выбора.
	minTileTarget = 20
	maxTileTarget = 50
	// Сколько наименьших подходящих номиналов участвуют в выборе,
	// когда остаток опустился ниже среднего — чтобы не перелетать в конце.
	smallPickWindow = 3
)

// Generator порождает разбивки целей на плитки.
// Источник случайности внедряется снаружи: в проде — time-seeded,
// в тестах — с фиксированным зерном.
type Generator struct {
	rnd *rand.Rand
}

// New создает генератор с указанным источником случайности.
// При nil используется источник, инициализированный текущим временем.
func New(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rnd: rand.New(src)}
}

// Amounts разбивает цель goal на список положительных сумм,
// в точности дающих goal. Для goal <= 0 возвращает nil.
// Результат намеренно недетерминирован между вызовами: и состав,
// и порядок плиток различаются для визуального разнообразия.
func (g *Generator) Amounts(goal int64) []int64 {
	if goal <= 0 {
		return nil
	}

	denoms := denominationsFor(goal)
	largest := denoms[len(denoms)-1]

	target := goal / largest
	if target < minTileTarget {
		target = minTileTarget
	}
	if target > maxTileTarget {
		target = maxTileTarget
	}
	average := goal / target

	amounts := make([]int64, 0, target)
	remaining := goal
	for remaining > 0 {
		valid := validCount(denoms, remaining)
		if valid == 0 {
			// Остаток меньше минимального номинала — добавляем его
			// отдельной (возможно, нестандартной) плиткой
			amounts = append(amounts, remaining)
			break
		}

		var pick int64
		if remaining < average {
			window := smallPickWindow
			if valid < window {
				window = valid
			}
			pick = denoms[g.rnd.Intn(window)]
		} else {
			pick = denoms[g.rnd.Intn(valid)]
		}

		amounts = append(amounts, pick)
		remaining -= pick
	}

	// Порядок плиток не несет смысла, перемешиваем для разнообразия
	g.rnd.Shuffle(len(amounts), func(i, j int) {
		amounts[i], amounts[j] = amounts[j], amounts[i]
	})
	return amounts
}

// denominationsFor возвращает набор номиналов для цели указанного масштаба.
func denominationsFor(goal int64) []int64 {
	for _, tier := range tiers {
		if goal <= tier.maxGoal {
			return tier.denoms
		}
	}
	return largeDenoms
}

// validCount возвращает число номиналов, не превышающих остаток.
// Наборы отсортированы по возрастанию, поэтому подходящие — префикс.
func validCount(denoms []int64, remaining int64) int {
	n := 0
	for _, d := range denoms {
		if d > remaining {
			break
		}
		n++
	}
	return n
}
