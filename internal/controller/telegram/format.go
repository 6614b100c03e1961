package telegram

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

// StatusDisplay emoji и текст статуса сессии
type StatusDisplay struct {
	Emoji string
	Text  string
}

var statusDisplays = map[model.SessionStatus]StatusDisplay{
	model.SessionStatusUpcoming:  {"📅", "Консультация забронирована"},
	model.SessionStatusActive:    {"🟢", "Консультация началась"},
	model.SessionStatusCompleted: {"✔️", "Консультация завершена"},
	model.SessionStatusMissed:    {"⏰", "Консультация пропущена"},
	model.SessionStatusCancelled: {"❌", "Консультация отменена"},
}

func GetStatusDisplay(status model.SessionStatus) StatusDisplay {
	if display, ok := statusDisplays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Неизвестно"}
}

// Formatter пишет время в зоне расписания
type Formatter struct {
	loc *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{loc: loc}
}

// SessionUpdate текст уведомления о новом статусе сессии
func (f *Formatter) SessionUpdate(s model.Session) string {
	display := GetStatusDisplay(s.Status)
	start := s.StartTime.In(f.loc)
	end := s.EndTime.In(f.loc)

	return fmt.Sprintf("%s %s\n🗓 %s %s-%s",
		display.Emoji,
		display.Text,
		start.Format("02.01.2006"),
		start.Format("15:04"),
		end.Format("15:04"),
	)
}
