// Package streak реализует калькулятор серий копилки: чистую функцию
// перехода состояния {текущая серия, рекорд, дата последней активности},
// вызываемую при каждой новой отметке плитки.
package streak

import "time"

// Frequency задает каданс серии копилки.
type Frequency string

// Поддерживаемые кадансы.
const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
)

// Valid сообщает, является ли значение известным кадансом.
func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly || f == Biweekly
}

// State представляет состояние серии одной копилки.
type State struct {
	Current      int        // Текущая серия (>= 0)
	Longest      int        // Рекордная серия, никогда не убывает
	LastActivity *time.Time // Дата последней активности (календарный день), может быть nil
}

// Apply возвращает состояние серии после отметки плитки в момент now.
// Переход срабатывает не чаще одного раза в календарный день: если
// LastActivity уже равна сегодняшнему дню, состояние не меняется.
//
// Пороговые окна по кадансам:
//   - daily:    разрыв 1 день — инкремент, больше 1 — сброс в 1;
//   - weekly:   разрыв 1..7 — инкремент, больше 14 — сброс в 1;
//   - biweekly: разрыв 1..14 — инкремент, больше 28 — сброс в 1.
//
// Для weekly разрыв 8..14 дней (и 15..28 для biweekly) — льготное окно:
// серия не растет и не сбрасывается, обновляется только дата активности.
func Apply(s State, freq Frequency, now time.Time) State {
	today := toDate(now)
	if s.LastActivity != nil && toDate(*s.LastActivity).Equal(today) {
		// Повторная отметка в тот же день серию не меняет
		return s
	}

	next := s
	if s.LastActivity == nil {
		// Первая активность в копилке
		next.Current = s.Current + 1
	} else {
		diff := daysBetween(*s.LastActivity, today)
		switch freq {
		case Daily:
			switch {
			case diff == 1:
				next.Current++
			case diff > 1:
				next.Current = 1
			}
		case Weekly:
			switch {
			case diff >= 1 && diff <= 7:
				next.Current++
			case diff > 14:
				next.Current = 1
			}
		case Biweekly:
			switch {
			case diff >= 1 && diff <= 14:
				next.Current++
			case diff > 28:
				next.Current = 1
			}
		}
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	next.LastActivity = &today
	return next
}

// Reset сбрасывает текущую серию и дату активности.
// Рекорд не трогаем: это исторический максимум, он переживает сбросы.
func Reset(s State) State {
	return State{Current: 0, Longest: s.Longest, LastActivity: nil}
}

// toDate усекает момент времени до календарного дня в UTC.
func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween возвращает число календарных дней между двумя датами.
func daysBetween(from, to time.Time) int {
	return int(toDate(to).Sub(toDate(from)).Hours() / 24)
}
