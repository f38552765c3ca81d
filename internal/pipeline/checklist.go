package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"caremind/internal"
)

var checklistNamespace = uuid.MustParse("5b8f0c1e-3f4a-4a8e-9d47-2c1f6e0b7a31")

// Only glyph bullets are stripped from checklist lines; a numbered prefix is
// part of the task.
var reChecklistBullet = regexp.MustCompile(`^[-\x{2022}\x{25CF}\x{25E6}\s]+`)

// ParseChecklist reads "TASK | TIMEFRAME" lines. A line must hold exactly one
// "|" and a non-empty task; anything else is dropped without error. Item ids
// are name-based UUIDs of position and content, so the same text always
// yields the same items.
func ParseChecklist(text string) []internal.ChecklistItem {
	items := []internal.ChecklistItem{}
	for _, line := range splitLines(text) {
		item, ok := parseChecklistLine(line)
		if !ok {
			continue
		}
		seed := strconv.Itoa(len(items)) + "|" + item.Task + "|" + item.Timeframe
		item.ID = "checklist-" + uuid.NewSHA1(checklistNamespace, []byte(seed)).String()
		items = append(items, item)
	}
	return items
}

func parseChecklistLine(line string) (internal.ChecklistItem, bool) {
	clean := reChecklistBullet.ReplaceAllString(strings.TrimSpace(line), "")
	if strings.Count(clean, "|") != 1 {
		return internal.ChecklistItem{}, false
	}
	task, timeframe, _ := strings.Cut(clean, "|")
	task = strings.TrimSpace(task)
	if task == "" {
		return internal.ChecklistItem{}, false
	}
	return internal.ChecklistItem{
		Task:      task,
		Timeframe: strings.TrimSpace(timeframe),
	}, true
}

// Checklist holds the items of the current fetch. Replace discards the
// previous items wholesale, matching a fresh fetch.
type Checklist struct {
	mu    sync.Mutex
	items []internal.ChecklistItem
}

func NewChecklist(items []internal.ChecklistItem) *Checklist {
	c := &Checklist{}
	c.Replace(items)
	return c
}

func (c *Checklist) Replace(items []internal.ChecklistItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]internal.ChecklistItem{}, items...)
}

// Toggle flips Completed on the item with id and reports whether it existed.
func (c *Checklist) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Completed = !c.items[i].Completed
			return true
		}
	}
	return false
}

func (c *Checklist) Items() []internal.ChecklistItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]internal.ChecklistItem{}, c.items...)
}

func (c *Checklist) Progress() (completed, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.Completed {
			completed++
		}
	}
	return completed, len(c.items)
}
