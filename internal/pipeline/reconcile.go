package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"caremind/internal"
	"caremind/internal/util"
)

var reChangeCue = regexp.MustCompile(`(?i)(increase|decrease|adjust|titrate|start|initiat|change|switch|new)`)

// Reconciliation splits a patient's active orders into stable and
// new-or-changed, and lists duplicate therapy.
type Reconciliation struct {
	Stable         []internal.MedicationOrder `json:"stable"`
	NewOrChanged   []internal.MedicationOrder `json:"newOrChanged"`
	NameConflicts  []string                   `json:"nameConflicts"`
	ClassConflicts []string                   `json:"classConflicts"`
}

func (r Reconciliation) DuplicateFlags() int {
	return len(r.NameConflicts) + len(r.ClassConflicts)
}

func isActiveOrder(order internal.MedicationOrder) bool {
	return strings.Contains(strings.ToLower(order.Status), "active")
}

func ActiveOrders(orders []internal.MedicationOrder) []internal.MedicationOrder {
	out := []internal.MedicationOrder{}
	for _, o := range orders {
		if isActiveOrder(o) {
			out = append(out, o)
		}
	}
	return out
}

// Reconcile measures recency against the newest order timestamp on the chart
// (active or not), falling back to now when none parses.
func Reconcile(orders []internal.MedicationOrder, window time.Duration, now time.Time) Reconciliation {
	out := Reconciliation{
		Stable:         []internal.MedicationOrder{},
		NewOrChanged:   []internal.MedicationOrder{},
		NameConflicts:  []string{},
		ClassConflicts: []string{},
	}
	active := ActiveOrders(orders)
	if len(active) == 0 {
		return out
	}

	var reference time.Time
	for _, o := range orders {
		if at, ok := ParseTimestamp(o.Timestamp); ok && at.After(reference) {
			reference = at
		}
	}
	if reference.IsZero() {
		reference = now
	}

	for _, o := range active {
		recent := false
		if at, ok := ParseTimestamp(o.Timestamp); ok {
			recent = reference.Sub(at) <= window
		}
		if recent || reChangeCue.MatchString(o.Status+" "+o.Instructions) {
			out.NewOrChanged = append(out.NewOrChanged, o)
		} else {
			out.Stable = append(out.Stable, o)
		}
	}

	out.NameConflicts, out.ClassConflicts = duplicateTherapy(active)
	return out
}

func duplicateTherapy(active []internal.MedicationOrder) ([]string, []string) {
	nameOrder := []string{}
	byName := map[string][]internal.MedicationOrder{}
	classOrder := []string{}
	byClass := map[string][]string{}
	classMembers := map[string]map[string]bool{}

	for _, o := range active {
		key := util.NormalizeMedicationName(o.MedicationName)
		if _, ok := byName[key]; !ok {
			nameOrder = append(nameOrder, key)
		}
		byName[key] = append(byName[key], o)

		class, ok := util.MedicationClass(o.MedicationName)
		if !ok {
			continue
		}
		if _, seen := classMembers[class]; !seen {
			classOrder = append(classOrder, class)
			classMembers[class] = map[string]bool{}
		}
		if !classMembers[class][key] {
			classMembers[class][key] = true
			byClass[class] = append(byClass[class], o.MedicationName)
		}
	}

	names := []string{}
	for _, key := range nameOrder {
		group := byName[key]
		if len(group) < 2 {
			continue
		}
		details := make([]string, 0, len(group))
		for _, o := range group {
			details = append(details, strings.TrimSpace(o.Dosage+" "+o.Frequency))
		}
		line := fmt.Sprintf("Duplicate therapy for %s: %s", group[0].MedicationName, strings.Join(details, " | "))
		if !util.SameDose(group[0].Dosage, group[len(group)-1].Dosage) {
			line += " (dose differs)"
		}
		names = append(names, line)
	}

	classes := []string{}
	for _, class := range classOrder {
		if len(byClass[class]) > 1 {
			classes = append(classes, fmt.Sprintf("Multiple agents in %s: %s", class, strings.Join(byClass[class], ", ")))
		}
	}
	return names, classes
}
