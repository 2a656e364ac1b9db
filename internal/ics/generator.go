package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"ticket2ics/internal/models"
)

const (
	prodID         = "-//ticket2ics//EN"
	dateTimeLayout = "20060102T150405"
)

// localTimeLayouts are the ISO-8601 local forms the recognition
// backend is allowed to emit.
var localTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Generator synthesizes a single-event ICS file from recognized
// ticket data. Output is deterministic for identical inputs except
// for the DTSTAMP generation timestamp.
type Generator struct {
	reminderHours map[models.TicketType]int
}

func NewGenerator(reminderHours map[models.TicketType]int) *Generator {
	return &Generator{reminderHours: reminderHours}
}

// Generate builds the calendar bytes. It fails only when the start
// (or end) time cannot be resolved against its IANA zone.
func (g *Generator) Generate(ticket *models.TicketData) ([]byte, error) {
	start, err := resolveLocalTime(ticket.Start)
	if err != nil {
		return nil, fmt.Errorf("resolve start time: %w", err)
	}

	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")

	event := cal.AddEvent(ticket.ID)
	event.SetDtStampTime(time.Now().UTC())
	event.SetSummary(ticket.Title)
	setZonedTime(event, ical.ComponentPropertyDtStart, start, ticket.Start.Timezone)

	if ticket.End != nil {
		end, err := resolveLocalTime(*ticket.End)
		if err != nil {
			return nil, fmt.Errorf("resolve end time: %w", err)
		}
		setZonedTime(event, ical.ComponentPropertyDtEnd, end, ticket.End.Timezone)
	}

	location := ticket.Location.Name
	if ticket.Location.Address != "" {
		location += ", " + ticket.Location.Address
	}
	event.SetLocation(location)

	if description := formatDetails(ticket.Details); description != "" {
		event.SetDescription(description)
	}

	alarm := event.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetProperty(ical.ComponentPropertyDescription, "Reminder: "+ticket.Title)
	alarm.SetTrigger(fmt.Sprintf("-PT%dH", g.hoursFor(ticket.Type)))

	return []byte(cal.Serialize()), nil
}

// hoursFor looks up the configured reminder lead time, defaulting to
// one hour for unrecognized ticket types.
func (g *Generator) hoursFor(ticketType models.TicketType) int {
	if hours, ok := g.reminderHours[ticketType]; ok {
		return hours
	}
	return 1
}

// formatDetails joins the non-empty detail fields as "key: value"
// lines in a fixed order.
func formatDetails(details models.DetailsInfo) string {
	parts := ""
	for _, entry := range []struct {
		key   string
		value string
	}{
		{"seat", details.Seat},
		{"gate", details.Gate},
		{"reference", details.Reference},
	} {
		if entry.value == "" {
			continue
		}
		if parts != "" {
			parts += "\n"
		}
		parts += entry.key + ": " + entry.value
	}
	return parts
}

func resolveLocalTime(info models.TimeInfo) (time.Time, error) {
	loc, err := time.LoadLocation(info.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", info.Timezone, err)
	}
	var lastErr error
	for _, layout := range localTimeLayouts {
		t, err := time.ParseInLocation(layout, info.DateTime, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: %w", info.DateTime, lastErr)
}

func setZonedTime(event *ical.VEvent, prop ical.ComponentProperty, t time.Time, zone string) {
	event.SetProperty(prop, t.Format(dateTimeLayout), &ical.KeyValues{
		Key:   string(ical.ParameterTzid),
		Value: []string{zone},
	})
}
