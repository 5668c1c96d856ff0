package compaction

import (
	"fmt"
	"math"
	"sort"

	"github.com/youssefsiam38/historypg/types"
)

// EditFunc transforms a tool part whose lifespan has expired. It returns the
// replacement part and true to keep it, or false to drop the part from its
// message. Edit functions must be pure: same part in, same decision out.
//
// Panics from an edit function are not recovered; a pass either completes or
// aborts, it never returns a partially edited log.
type EditFunc func(part types.Part) (types.Part, bool)

// Policy describes what happens to a tool's parts once they outlive their
// lifespan.
//
// Exactly one of Lifespan and LifespanFraction may be set. An absolute
// Lifespan counts messages backwards from the end of the log; a tool return
// sitting Lifespan messages or more from the end expires the tool.
// LifespanFraction expresses the same bound as a fraction of the log length
// and is resolved on every call, so it tracks the log as it grows.
type Policy struct {
	// Edit is applied to every call, return, and retry part of the tool
	// once the tool has expired. Required.
	Edit EditFunc

	// Lifespan is the number of trailing messages in which the tool's
	// returns stay intact. Zero expires the tool's returns immediately.
	Lifespan int

	// LifespanFraction resolves to round(fraction * log length) at call
	// time. When set, Lifespan must be zero.
	LifespanFraction float64
}

// Policies maps tool names to edit policies. Tools without an entry are
// never edited; part kinds other than call, return, and retry are never
// edited regardless of policy.
type Policies map[string]Policy

// Validate checks every policy in the table. Malformed policies are
// rejected, never clamped. Tool names are checked in sorted order so the
// reported entry is deterministic.
func (p Policies) Validate() error {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		policy := p[name]

		if policy.Edit == nil {
			return fmt.Errorf("%w: tool %q has no edit function", ErrInvalidPolicy, name)
		}

		if policy.Lifespan < 0 {
			return fmt.Errorf("%w: tool %q has negative lifespan %d", ErrInvalidPolicy, name, policy.Lifespan)
		}

		fraction := policy.LifespanFraction
		if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
			return fmt.Errorf("%w: tool %q has non-finite lifespan fraction", ErrInvalidPolicy, name)
		}
		if fraction < 0 {
			return fmt.Errorf("%w: tool %q has negative lifespan fraction %v", ErrInvalidPolicy, name, fraction)
		}

		if policy.Lifespan > 0 && fraction > 0 {
			return fmt.Errorf("%w: tool %q sets both an absolute lifespan and a fraction", ErrInvalidPolicy, name)
		}
	}

	return nil
}

// resolveLifespans converts every policy's lifespan to an absolute message
// count for a log of the given length. Fractions round half away from zero,
// so 0.5 on a 10-message log resolves to 5.
func (p Policies) resolveLifespans(total int) map[string]int {
	resolved := make(map[string]int, len(p))
	for name, policy := range p {
		if policy.LifespanFraction > 0 {
			resolved[name] = int(math.Round(policy.LifespanFraction * float64(total)))
			continue
		}
		resolved[name] = policy.Lifespan
	}
	return resolved
}
