package analytics

import (
	"sort"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
)

// cityLimit caps the city breakdown so one query cannot return an unbounded
// list for marketplaces that ship everywhere.
const cityLimit = 50

// OrderSummary is one order reduced to the fields analytics cares about.
type OrderSummary struct {
	ID          string           `json:"id"`
	Number      string           `json:"number"`
	State       enums.OrderState `json:"state"`
	BucketDate  string           `json:"date"`
	OccurredAt  time.Time        `json:"occurred_at"`
	AmountMinor int64            `json:"amount_minor"`
	City        string           `json:"city,omitempty"`
}

// DayBucket is the per-business-day series point.
type DayBucket struct {
	Date        string `json:"x"`
	Count       int    `json:"count"`
	AmountMinor int64  `json:"amount_minor"`
}

// CityBucket is the per-city rollup.
type CityBucket struct {
	City        string `json:"city"`
	Count       int    `json:"count"`
	AmountMinor int64  `json:"amount_minor"`
}

// StateCount is the per-state tally.
type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// Aggregate is the full rollup of a collected order set.
type Aggregate struct {
	Days             []DayBucket  `json:"days"`
	Cities           []CityBucket `json:"cities"`
	States           []StateCount `json:"state_breakdown"`
	TotalOrders      int          `json:"total_orders"`
	TotalAmountMinor int64        `json:"total_amount_minor"`
}

// aggregate rolls summaries up into day, city and state buckets. Days sort
// ascending by date; cities sort by amount descending (city name breaks
// ties) and are capped; states sort by count descending.
func aggregate(items []OrderSummary) Aggregate {
	days := map[string]*DayBucket{}
	cities := map[string]*CityBucket{}
	states := map[string]int{}

	for _, item := range items {
		day, ok := days[item.BucketDate]
		if !ok {
			day = &DayBucket{Date: item.BucketDate}
			days[item.BucketDate] = day
		}
		day.Count++
		day.AmountMinor += item.AmountMinor

		if item.City != "" {
			city, ok := cities[item.City]
			if !ok {
				city = &CityBucket{City: item.City}
				cities[item.City] = city
			}
			city.Count++
			city.AmountMinor += item.AmountMinor
		}

		states[item.State.String()]++
	}

	out := Aggregate{
		Days:   make([]DayBucket, 0, len(days)),
		Cities: make([]CityBucket, 0, len(cities)),
		States: make([]StateCount, 0, len(states)),
	}
	for _, day := range days {
		out.Days = append(out.Days, *day)
		out.TotalOrders += day.Count
		out.TotalAmountMinor += day.AmountMinor
	}
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Date < out.Days[j].Date })

	for _, city := range cities {
		out.Cities = append(out.Cities, *city)
	}
	sort.Slice(out.Cities, func(i, j int) bool {
		if out.Cities[i].AmountMinor != out.Cities[j].AmountMinor {
			return out.Cities[i].AmountMinor > out.Cities[j].AmountMinor
		}
		return out.Cities[i].City < out.Cities[j].City
	})
	if len(out.Cities) > cityLimit {
		out.Cities = out.Cities[:cityLimit]
	}

	for state, count := range states {
		out.States = append(out.States, StateCount{State: state, Count: count})
	}
	sort.Slice(out.States, func(i, j int) bool {
		if out.States[i].Count != out.States[j].Count {
			return out.States[i].Count > out.States[j].Count
		}
		return out.States[i].State < out.States[j].State
	})

	return out
}
