// Package views derives read-only projections from a store snapshot.
package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tool_custody/custody"
	"tool_custody/models"
)

const recentOnDashboard = 5

func filter(txs []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	out := []models.Transaction{}
	for _, t := range txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func newestFirst(txs []models.Transaction) []models.Transaction {
	out := append([]models.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckoutTime.After(out[j].CheckoutTime) })
	return out
}

func contains(s, q string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(q))
}

func ActiveLoans(s models.Snapshot) []models.Transaction {
	return filter(s.Transactions, func(t models.Transaction) bool { return t.IsActive })
}

// PendingApprovals are loans their holder asked to return.
func PendingApprovals(s models.Snapshot) []models.Transaction {
	return filter(s.Transactions, models.Transaction.Pending)
}

// OpenLoans are active loans with no return request, optionally filtered by
// item or trainer name.
func OpenLoans(s models.Snapshot, q string) []models.Transaction {
	q = strings.TrimSpace(q)
	return filter(s.Transactions, func(t models.Transaction) bool {
		if !t.IsActive || t.ReturnRequested {
			return false
		}
		return q == "" || contains(t.ItemName, q) || contains(t.TrainerName, q)
	})
}

func TrainerLoans(s models.Snapshot, trainerID string) []models.Transaction {
	return filter(s.Transactions, func(t models.Transaction) bool {
		return t.IsActive && t.TrainerID == trainerID
	})
}

func TrainerActiveCount(s models.Snapshot, trainerID string) int {
	return len(TrainerLoans(s, trainerID))
}

func TrainerLifetimeCount(s models.Snapshot, trainerID string) int {
	n := 0
	for _, t := range s.Transactions {
		if t.TrainerID == trainerID {
			n++
		}
	}
	return n
}

func ItemUsageCount(s models.Snapshot, itemID string) int {
	n := 0
	for _, t := range s.Transactions {
		if t.ItemID == itemID {
			n++
		}
	}
	return n
}

// AvailableItems lists checkout candidates, optionally filtered by name.
func AvailableItems(s models.Snapshot, q string) []models.Item {
	q = strings.TrimSpace(q)
	out := []models.Item{}
	for _, it := range s.Items {
		if it.Status == models.ItemAvailable && (q == "" || contains(it.Name, q)) {
			out = append(out, it)
		}
	}
	return out
}

type ItemSummary struct {
	models.Item
	UsageCount  int                 `json:"usageCount"`
	CurrentLoan *models.Transaction `json:"currentLoan,omitempty"`
}

func ItemSummaries(s models.Snapshot) []ItemSummary {
	current := map[string]models.Transaction{}
	usage := map[string]int{}
	for _, t := range s.Transactions {
		usage[t.ItemID]++
		if t.IsActive {
			current[t.ItemID] = t
		}
	}
	out := make([]ItemSummary, 0, len(s.Items))
	for _, it := range s.Items {
		row := ItemSummary{Item: it, UsageCount: usage[it.ID]}
		if t, ok := current[it.ID]; ok {
			row.CurrentLoan = &t
		}
		out = append(out, row)
	}
	return out
}

type TrainerSummary struct {
	models.Trainer
	ActiveLoans   []models.Transaction `json:"activeLoans"`
	LifetimeCount int                  `json:"lifetimeCount"`
}

func TrainerSummaries(s models.Snapshot) []TrainerSummary {
	out := make([]TrainerSummary, 0, len(s.Trainers))
	for _, tr := range s.Trainers {
		out = append(out, TrainerSummary{
			Trainer:       tr,
			ActiveLoans:   TrainerLoans(s, tr.ID),
			LifetimeCount: TrainerLifetimeCount(s, tr.ID),
		})
	}
	return out
}

// DirectoryEntry is what the portal login selector may see.
type DirectoryEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func Directory(s models.Snapshot) []DirectoryEntry {
	out := make([]DirectoryEntry, 0, len(s.Trainers))
	for _, tr := range s.Trainers {
		out = append(out, DirectoryEntry{ID: tr.ID, Name: tr.Name})
	}
	return out
}

type Dashboard struct {
	ActiveLoans    int                  `json:"activeLoans"`
	TotalItems     int                  `json:"totalItems"`
	AvailableItems int                  `json:"availableItems"`
	Recent         []models.Transaction `json:"recent"`
}

func BuildDashboard(s models.Snapshot) Dashboard {
	recent := newestFirst(s.Transactions)
	if len(recent) > recentOnDashboard {
		recent = recent[:recentOnDashboard]
	}
	return Dashboard{
		ActiveLoans:    len(ActiveLoans(s)),
		TotalItems:     len(s.Items),
		AvailableItems: len(AvailableItems(s, "")),
		Recent:         recent,
	}
}

// DateRange bounds checkout days in a location; a zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
	Loc  *time.Location
}

// ParseDateRange reads YYYY-MM-DD bounds; blank means unbounded.
func ParseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := DateRange{Loc: loc}
	var err error
	if s := strings.TrimSpace(from); s != "" {
		if r.From, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return DateRange{}, fmt.Errorf("%w: bad from date %q", custody.ErrValidation, s)
		}
	}
	if s := strings.TrimSpace(to); s != "" {
		if r.To, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return DateRange{}, fmt.Errorf("%w: bad to date %q", custody.ErrValidation, s)
		}
	}
	return r, nil
}

// Contains compares whole days: both bounds are inclusive.
func (r DateRange) Contains(t time.Time) bool {
	loc := r.Loc
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if !r.From.IsZero() && day.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && day.After(r.To) {
		return false
	}
	return true
}

// History lists transactions checked out within r, newest first.
func History(s models.Snapshot, r DateRange) []models.Transaction {
	return newestFirst(filter(s.Transactions, func(t models.Transaction) bool {
		return r.Contains(t.CheckoutTime)
	}))
}
