// Package srs реализует вычисление интервалов повторения по сигналу
// сложности припоминания. Алгоритм — упрощённый вариант SM-2: интервал
// растёт умножением на фактор лёгкости, сложные ответы сбрасывают интервал
// и снижают фактор.
package srs

import (
	"fmt"
	"math"
	"time"
)

// Difficulty — сигнал сложности припоминания от пользователя.
type Difficulty string

const (
	Hard  Difficulty = "hard"
	Good  Difficulty = "good"
	Easy  Difficulty = "easy"
	Reset Difficulty = "reset"
)

const (
	// DefaultEase — стартовый фактор лёгкости новой записи.
	DefaultEase = 2.5
	// MinEase — нижняя граница фактора лёгкости.
	MinEase = 1.3
)

// Result — новое состояние планировщика после одного ответа.
type Result struct {
	Interval   int
	Ease       float64
	NextReview time.Time
}

// ParseDifficulty валидирует строковый сигнал сложности.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case Hard, Good, Easy, Reset:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// ComputeNextInterval вычисляет следующий интервал и фактор лёгкости.
// Функция тотальна для валидных сигналов и не имеет побочных эффектов;
// next_review = now + interval дней.
//
//	hard:  интервал 1, ease −0.2 (не ниже 1.3)
//	good:  1, если интервал был 0, иначе ceil(interval·ease)
//	easy:  4, если интервал был 0, иначе ceil(interval·ease·1.3); ease +0.15
//	reset: интервал 0, ease 2.5
func ComputeNextInterval(ease float64, interval int, d Difficulty, now time.Time) Result {
	if ease == 0 {
		ease = DefaultEase
	}
	if interval < 0 {
		interval = 0
	}

	var r Result
	switch d {
	case Hard:
		r.Interval = 1
		r.Ease = ease - 0.2
		if r.Ease < MinEase {
			r.Ease = MinEase
		}
	case Good:
		if interval == 0 {
			r.Interval = 1
		} else {
			r.Interval = int(math.Ceil(float64(interval) * ease))
		}
		r.Ease = ease
	case Easy:
		if interval == 0 {
			r.Interval = 4
		} else {
			r.Interval = int(math.Ceil(float64(interval) * ease * 1.3))
		}
		r.Ease = ease + 0.15
	case Reset:
		r.Interval = 0
		r.Ease = DefaultEase
	default:
		// Нераспознанный сигнал ничего не меняет.
		r.Interval = interval
		r.Ease = ease
	}

	r.NextReview = now.AddDate(0, 0, r.Interval)
	return r
}
