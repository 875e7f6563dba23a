// Package ics renders application events as an iCalendar document.
//
// Occurrences that belong to the same recurring series are collapsed into a
// single VEVENT carrying an RRULE, so subscribing calendar clients see one
// repeating entry instead of every expanded occurrence.
package ics

import (
	"fmt"
	"sort"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/example/family-scheduler/internal/application"
)

const productID = "-//family-scheduler//calendar export//EN"

// Encode serializes the given events into an iCalendar document.
func Encode(events []application.Event) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	singles, series := splitSeries(events)

	for _, event := range singles {
		addEvent(cal, event, "")
	}

	seriesIDs := make([]string, 0, len(series))
	for id := range series {
		seriesIDs = append(seriesIDs, id)
	}
	sort.Strings(seriesIDs)

	for _, id := range seriesIDs {
		group := series[id]
		sort.Slice(group, func(i, j int) bool { return group[i].Start.Before(group[j].Start) })

		rule, ok := inferRule(group)
		if !ok {
			for _, event := range group {
				addEvent(cal, event, "")
			}
			continue
		}
		addEvent(cal, group[0], rule)
	}

	return cal.Serialize(), nil
}

func splitSeries(events []application.Event) ([]application.Event, map[string][]application.Event) {
	singles := make([]application.Event, 0, len(events))
	series := make(map[string][]application.Event)

	for _, event := range events {
		if event.SeriesID == nil || *event.SeriesID == "" {
			singles = append(singles, event)
			continue
		}
		series[*event.SeriesID] = append(series[*event.SeriesID], event)
	}

	sort.Slice(singles, func(i, j int) bool { return singles[i].Start.Before(singles[j].Start) })
	return singles, series
}

func addEvent(cal *ical.Calendar, event application.Event, rule string) {
	ve := cal.AddEvent(fmt.Sprintf("%s@family-scheduler", event.ID))
	ve.SetDtStampTime(event.UpdatedAt.UTC())
	ve.SetStartAt(event.Start.UTC())
	ve.SetEndAt(event.End.UTC())
	ve.SetSummary(event.Title)
	if event.Description != "" {
		ve.SetDescription(event.Description)
	}
	if rule != "" {
		ve.AddRrule(rule)
	}
}

// inferRule reconstructs the RRULE for a series from the spacing of its
// occurrences. The seed always starts the series, so the gap between the
// first two occurrences identifies the frequency.
func inferRule(group []application.Event) (string, bool) {
	if len(group) < 2 {
		return "", false
	}

	first := group[0].Start
	second := group[1].Start

	option := rrule.ROption{Count: len(group)}
	switch {
	case second.Equal(first.AddDate(0, 0, 1)):
		option.Freq = rrule.DAILY
	case second.Equal(first.AddDate(0, 0, 7)):
		option.Freq = rrule.WEEKLY
	case second.Equal(first.AddDate(0, 0, 14)):
		option.Freq = rrule.WEEKLY
		option.Interval = 2
	case second.Equal(first.AddDate(0, 1, 0)):
		option.Freq = rrule.MONTHLY
	case second.Equal(first.AddDate(1, 0, 0)):
		option.Freq = rrule.YEARLY
	default:
		return "", false
	}

	rule, err := rrule.NewRRule(option)
	if err != nil {
		return "", false
	}
	return rule.String(), true
}
