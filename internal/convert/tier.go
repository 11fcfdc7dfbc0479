package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/rsc-forge/internal/resource"
	apperrors "github.com/rsc-forge/pkg/errors"
	"github.com/rsc-forge/pkg/utils"
)

// TierName identifies a rung of the fallback ladder.
type TierName string

const (
	// TierStructural delegates to the external structural codec.
	TierStructural TierName = "structural"
	// TierHeuristic relocates discovered regions into fresh streams.
	TierHeuristic TierName = "heuristic"
	// TierOpaque stores the whole dump as one system blob.
	TierOpaque TierName = "opaque"
)

// DefaultTiers is the full ladder in fidelity order.
var DefaultTiers = []TierName{TierStructural, TierHeuristic, TierOpaque}

// ParseTiers validates tier names from configuration, keeping their order.
func ParseTiers(names []string) ([]TierName, error) {
	if len(names) == 0 {
		return DefaultTiers, nil
	}
	seen := make(map[TierName]bool, len(names))
	tiers := make([]TierName, 0, len(names))
	for _, n := range names {
		t := TierName(strings.ToLower(strings.TrimSpace(n)))
		switch t {
		case TierStructural, TierHeuristic, TierOpaque:
		default:
			return nil, apperrors.Newf(apperrors.CodeConfigError, "unknown conversion tier: %q", n)
		}
		if !seen[t] {
			seen[t] = true
			tiers = append(tiers, t)
		}
	}
	return tiers, nil
}

// Input is what every tier receives.
type Input struct {
	Dump       []byte
	Generation resource.Generation

	timer *utils.Timer
}

func (in *Input) time(phase string, fn func() error) error {
	if in.timer == nil {
		return fn()
	}
	return in.timer.Time(phase, fn)
}

// start begins timing a phase that cannot fail; call the returned func to
// stop it.
func (in *Input) start(phase string) func() {
	if in.timer == nil {
		return func() {}
	}
	pt := in.timer.Start(phase)
	return func() { pt.Stop() }
}

// Output is a successful tier result.
type Output struct {
	Container []byte
	// Warnings lists pointer sites the heuristic tier could not patch.
	Warnings []resource.RelocationWarning
	// Map is the memory map the heuristic tier worked from.
	Map *resource.MemoryMap
}

// Tier is one total conversion strategy.
type Tier interface {
	Name() TierName
	Run(ctx context.Context, in *Input) (*Output, error)
}

// Attempt records a failed tier.
type Attempt struct {
	Tier TierName `json:"tier"`
	Err  error    `json:"-"`
}

// String implements fmt.Stringer.
func (a Attempt) String() string {
	return fmt.Sprintf("%s: %v", a.Tier, a.Err)
}

// tierHook wraps a single tier run.
type tierHook func(ctx context.Context, tier TierName, run func(ctx context.Context) (*Output, error)) (*Output, error)

// runLadder tries tiers in order and returns the first success together
// with the failures that preceded it. When every tier fails, the error is
// a ConversionFailed wrapping the first tier's cause and naming the last.
func runLadder(ctx context.Context, tiers []Tier, in *Input, hook tierHook) (*Output, TierName, []Attempt, error) {
	if len(tiers) == 0 {
		return nil, "", nil, apperrors.New(apperrors.CodeConversionFailed, "no conversion tiers configured")
	}

	var attempts []Attempt
	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return nil, "", attempts, err
		}

		run := func(ctx context.Context) (*Output, error) { return tier.Run(ctx, in) }
		var (
			out *Output
			err error
		)
		if hook != nil {
			out, err = hook(ctx, tier.Name(), run)
		} else {
			out, err = run(ctx)
		}
		if err == nil && out != nil {
			return out, tier.Name(), attempts, nil
		}
		if err == nil {
			err = fmt.Errorf("tier produced no output")
		}
		attempts = append(attempts, Attempt{Tier: tier.Name(), Err: err})
	}

	first, last := attempts[0], attempts[len(attempts)-1]
	msg := fmt.Sprintf("all %d conversion tiers failed; last tier %s", len(attempts), last)
	return nil, "", attempts, apperrors.Wrap(apperrors.CodeConversionFailed, msg, first.Err)
}
