// Package ratelimit meters the work MCP tools may do. Each tool owns a
// budget that refills at a fixed rate; a call spends an amount of the budget
// proportional to its cost, measured in node updates for simulation runs.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Budget is a per-key token bucket whose requests may spend more than one
// token. It is safe for concurrent use.
type Budget struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64          // units refilled per second
	capacity float64          // max units held, also the initial amount
	nowFunc  func() time.Time // injectable clock for testing
}

type bucket struct {
	units     float64
	lastCheck time.Time
}

// NewBudget creates a budget refilling rate units per second, holding at
// most capacity units. Every key starts full.
func NewBudget(rate, capacity float64) *Budget {
	return &Budget{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
		nowFunc:  time.Now,
	}
}

// Capacity returns the most a single request can spend.
func (b *Budget) Capacity() float64 {
	return b.capacity
}

// Spend takes cost units from key's bucket. It reports false, taking
// nothing, if fewer than cost units are available.
func (b *Budget) Spend(key string, cost float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()

	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{units: b.capacity, lastCheck: now}
		b.buckets[key] = bk
	}

	if elapsed := now.Sub(bk.lastCheck).Seconds(); elapsed > 0 {
		bk.units += b.rate * elapsed
		if bk.units > b.capacity {
			bk.units = b.capacity
		}
		bk.lastCheck = now
	}

	if bk.units < cost {
		return false
	}
	bk.units -= cost
	return true
}

// ToolBudgets maps tool names to their budgets.
type ToolBudgets map[string]*Budget

// NewToolBudgets creates the default budgets for the iac MCP tools.
// Simulation runs are metered in node updates (nodes x steps); the
// built-in Jets and Sharks network costs 34,000 for a default run.
func NewToolBudgets() ToolBudgets {
	return ToolBudgets{
		"iac_run":      NewBudget(1_000_000, 5_000_000), // 1M node updates/s, 5M max per call
		"iac_networks": NewBudget(1.0, 10),              // 60/minute, burst 10
		"iac_validate": NewBudget(30.0/60.0, 5),         // 30/minute, burst 5
	}
}

// Check spends cost units of toolName's budget.
// Returns nil if allowed, or an error if the budget is exhausted or the
// request can never fit. Tools without a budget are always allowed.
func Check(budgets ToolBudgets, toolName string, cost float64) error {
	budget, ok := budgets[toolName]
	if !ok {
		return nil
	}

	if cost > budget.Capacity() {
		return fmt.Errorf("%s request costs %.0f units, more than the limit of %.0f", toolName, cost, budget.Capacity())
	}
	if !budget.Spend(toolName, cost) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
