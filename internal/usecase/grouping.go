package usecase

import (
	"fmt"
	"time"

	"keurimmo/internal/domain/entity"
)

var frenchWeekdays = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// DayLabel renders the separator label for a message day, relative to now
// and in the viewer's location: "Aujourd'hui", "Hier", the bare weekday for
// the last seven days, then "lundi 12 janvier 2026".
func DayLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	day := t.In(loc)
	today := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	that := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	switch diff := today.Sub(that); {
	case diff == 0:
		return "Aujourd'hui"
	case diff == 24*time.Hour:
		return "Hier"
	case diff > 0 && diff < 7*24*time.Hour:
		return frenchWeekdays[day.Weekday()]
	default:
		return fmt.Sprintf("%s %d %s %d",
			frenchWeekdays[day.Weekday()], day.Day(), frenchMonths[day.Month()-1], day.Year())
	}
}

// MessageGroup is one calendar day of the thread.
type MessageGroup struct {
	Label    string         `json:"label"`
	Date     string         `json:"date"`
	Messages []*GroupedView `json:"messages"`
}

// GroupedView wraps a message with its rendering hint: ShowHeader is false
// when the previous message of the same day came from the same sender, so
// runs collapse under one name and avatar.
type GroupedView struct {
	*MessageView
	ShowHeader bool `json:"showHeader"`
}

// GroupByDay splits an ordered message list into per-day groups and computes
// header visibility. System messages always break a run, and never carry a
// header of their own.
func GroupByDay(messages []*MessageView, now time.Time, loc *time.Location) []*MessageGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []*MessageGroup
	var current *MessageGroup
	var prev *MessageView

	for _, view := range messages {
		day := view.CreatedAt.In(loc).Format("2006-01-02")
		if current == nil || current.Date != day {
			current = &MessageGroup{
				Label: DayLabel(view.CreatedAt, now, loc),
				Date:  day,
			}
			groups = append(groups, current)
			prev = nil
		}

		show := headerVisible(view, prev)
		current.Messages = append(current.Messages, &GroupedView{MessageView: view, ShowHeader: show})
		prev = view
	}

	return groups
}

func headerVisible(view, prev *MessageView) bool {
	if view.Kind == entity.MessageKindSystem {
		return false
	}
	if prev == nil || prev.Kind == entity.MessageKindSystem {
		return true
	}
	return prev.SenderID != view.SenderID
}
