package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *engine.Status:
		o.printStatus(v)
	case []*model.AccountState:
		o.printAccounts(v)
	case *remote.SellResult:
		o.printSellResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printStatus(s *engine.Status) {
	name := string(s.AccountID)
	if s.DisplayName != "" {
		name = fmt.Sprintf("%s (%s)", s.DisplayName, s.AccountID)
	}
	fmt.Fprintf(o.w, "Account: %s\n", name)
	fmt.Fprintf(o.w, "State: %s (phase %d)\n", s.State, s.Phase)
	fmt.Fprintf(o.w, "Rank: %s\n", s.Rank)
	fmt.Fprintf(o.w, "Level: %d\n", s.Level)
	fmt.Fprintf(o.w, "Money: %s\n", s.Balances.Money.StringFixed(2))
	fmt.Fprintf(o.w, "Tokens: %s\n", s.Balances.Tokens.StringFixed(0))
	fmt.Fprintf(o.w, "Trading unlocked: %t\n", s.TradingUnlocked)

	if s.ClickFreeze != nil {
		fmt.Fprintf(o.w, "Click freeze: %s -> %s (%s left)\n",
			s.ClickFreeze.StartedAt.Format(time.RFC3339),
			s.ClickFreeze.EndsAt.Format(time.RFC3339),
			s.WindowRemaining.Round(time.Second),
		)
	}
	if s.QueuePosition > 0 {
		fmt.Fprintf(o.w, "Waiting for click freeze slot: position %d\n", s.QueuePosition)
	}
	if s.LastError != "" {
		fmt.Fprintf(o.w, "Last error: %s (%d in a row)\n", s.LastError, s.Failures)
	}

	if len(s.RecentLogs) > 0 {
		fmt.Fprintln(o.w, "\nRecent logs:")
		for _, e := range s.RecentLogs {
			fmt.Fprintf(o.w, "  %s\n", e)
		}
	}
}

func (o *Output) printAccounts(accounts []*model.AccountState) {
	if len(accounts) == 0 {
		fmt.Fprintln(o.w, "No accounts")
		return
	}
	for _, a := range accounts {
		fmt.Fprintf(o.w, "%-20s %-16s %-28s level %d\n", a.ID, a.State(), a.Rank, a.Level)
	}
}

func (o *Output) printSellResult(r *remote.SellResult) {
	fmt.Fprintf(o.w, "Sold %d items for %s\n", r.Count, r.Cost.StringFixed(2))
}
