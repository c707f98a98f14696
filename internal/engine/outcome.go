package engine

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/types"
)

// Outcome is what one executed operation produced. A batch yields one
// outcome per executor call plus one per read-only command.
type Outcome struct {
	Index   int
	Command commands.Command
	Display *types.Result
	Err     error
}

// Summarize merges outcomes into the single result delivered to the user.
// Any failure makes the result an error listing every failure. Otherwise
// the display payloads are concatenated, and a batch with nothing to show
// yields the Done sentinel.
func Summarize(outcomes []Outcome) types.Result {
	var failures []string
	var shown []*types.Result
	for _, o := range outcomes {
		if o.Err != nil {
			failures = append(failures, describeFailure(o))
			continue
		}
		if o.Display != nil {
			shown = append(shown, o.Display)
		}
	}

	if len(failures) > 0 {
		return types.Failure(fmt.Sprintf("%d of %d operations failed:\n- %s",
			len(failures), len(outcomes), strings.Join(failures, "\n- ")))
	}

	switch len(shown) {
	case 0:
		return types.Done()
	case 1:
		return *shown[0]
	}
	merged := types.Result{Items: []string{}}
	titles := make([]string, 0, len(shown))
	for _, r := range shown {
		titles = append(titles, r.Title)
		merged.Items = append(merged.Items, r.Items...)
	}
	merged.Title = strings.Join(titles, " / ")
	return merged
}

func describeFailure(o Outcome) string {
	var ef *ExecutorFailure
	if errors.As(o.Err, &ef) {
		return ef.Error()
	}
	return fmt.Sprintf("%s: %v", commands.Describe(o.Command), o.Err)
}
