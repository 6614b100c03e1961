package schedule

import (
	"sort"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

// Half половина месяца, которую показывает календарь
type Half int

const (
	FirstHalf  Half = 1 // 1-15
	SecondHalf Half = 2 // 16-конец месяца
)

const firstHalfLastDay = 15

// Density уровень загрузки дня по числу свободных слотов
type Density string

const (
	DensityNone   Density = "none"
	DensityLow    Density = "low"
	DensityMedium Density = "medium"
	DensityHigh   Density = "high"
)

// DensityFor фиксированная таблица порогов: 0, 1-3, 4-6, 7+
func DensityFor(count int) Density {
	switch {
	case count <= 0:
		return DensityNone
	case count <= 3:
		return DensityLow
	case count <= 6:
		return DensityMedium
	default:
		return DensityHigh
	}
}

// Day один день календаря
type Day struct {
	Date               model.Date   `json:"date"`
	DayName            string       `json:"day_name"`
	DayNumber          int          `json:"day_number"`
	AvailableSlotCount int          `json:"available_slot_count"`
	Density            Density      `json:"density"`
	Slots              []model.Slot `json:"slots"`
}

// View проекция половины месяца
type View struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Half     Half       `json:"half"`
	Advanced bool       `json:"advanced"` // запрошенная половина была пуста и календарь сдвинут
	Days     []Day      `json:"days"`
}

// ProjectRequest что показать и относительно какого "сегодня"
type ProjectRequest struct {
	Year  int
	Month time.Month
	Half  Half
	Slots []model.Slot
	Today model.Date
}

// Project строит календарь по слотам, не изменяя их.
// Дни раньше Today отбрасываются; если от половины ничего не осталось,
// календарь переходит на следующую половину. Целиком прошедший период
// сразу заменяется половиной, содержащей Today.
func Project(req ProjectRequest) View {
	half := req.Half
	if half != SecondHalf {
		half = FirstHalf
	}
	year, month := req.Year, req.Month

	byDate := groupByDate(req.Slots)

	advanced := false
	if !req.Today.IsZero() {
		_, last := halfBounds(year, month, half)
		if (model.Date{Year: year, Month: month, Day: last}).Before(req.Today) {
			year, month, half = req.Today.Year, req.Today.Month, HalfOf(req.Today)
			advanced = true
		}
	}

	for {
		days := projectHalf(year, month, half, byDate, req.Today)
		if len(days) > 0 {
			return View{Year: year, Month: month, Half: half, Advanced: advanced, Days: days}
		}
		advanced = true
		year, month, half = nextHalf(year, month, half)
	}
}

func projectHalf(year int, month time.Month, half Half, byDate map[model.Date][]model.Slot, today model.Date) []Day {
	first, last := halfBounds(year, month, half)

	days := make([]Day, 0, last-first+1)
	for d := first; d <= last; d++ {
		date := model.Date{Year: year, Month: month, Day: d}
		if !today.IsZero() && date.Before(today) {
			continue
		}

		slots := byDate[date]
		available := 0
		for _, slot := range slots {
			if !slot.IsBooked {
				available++
			}
		}

		days = append(days, Day{
			Date:               date,
			DayName:            date.Weekday().String(),
			DayNumber:          d,
			AvailableSlotCount: available,
			Density:            DensityFor(available),
			Slots:              slots,
		})
	}
	return days
}

// HalfOf половина месяца, в которую попадает d
func HalfOf(d model.Date) Half {
	if d.Day > firstHalfLastDay {
		return SecondHalf
	}
	return FirstHalf
}

func halfBounds(year int, month time.Month, half Half) (int, int) {
	if half == FirstHalf {
		return 1, firstHalfLastDay
	}
	return firstHalfLastDay + 1, daysIn(year, month)
}

func nextHalf(year int, month time.Month, half Half) (int, time.Month, Half) {
	if half == FirstHalf {
		return year, month, SecondHalf
	}
	next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return next.Year(), next.Month(), FirstHalf
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// groupByDate копирует слоты по датам и сортирует каждый день по началу
func groupByDate(slots []model.Slot) map[model.Date][]model.Slot {
	byDate := make(map[model.Date][]model.Slot)
	for _, slot := range slots {
		byDate[slot.Date] = append(byDate[slot.Date], slot)
	}
	for _, daySlots := range byDate {
		sort.Slice(daySlots, func(i, j int) bool {
			return daySlots[i].StartTime < daySlots[j].StartTime
		})
	}
	return byDate
}
