package gate

import (
	"fmt"
	"time"

	"github.com/Arpita31/alfred/internal/signal"
)

// #region gate
// Gate is the stateless admission check over a candidate signal and the
// user's policy context. History reads and the atomicity of admit-and-create
// belong to the caller; the gate itself is a pure function of its inputs.
type Gate struct{}

// NewGate creates a policy gate.
func NewGate() *Gate {
	return &Gate{}
}

// Evaluate applies the deny conditions in order and stops at the first match:
// no signal, quiet hours, low confidence, daily cap, cooldown. Anything that
// survives every check is admitted.
func (g *Gate) Evaluate(sig *signal.Signal, pctx PolicyContext) Decision {
	if sig == nil {
		return Decision{Reason: DenyNoSignal, Detail: "no candidate signal"}
	}

	if inQuietHours(pctx.Now, pctx.QuietHoursStart, pctx.QuietHoursEnd) {
		return Decision{
			Reason: DenyQuietHours,
			Detail: fmt.Sprintf("current time %s inside quiet hours [%s, %s)",
				pctx.Now.Format("15:04"), pctx.QuietHoursStart, pctx.QuietHoursEnd),
		}
	}

	if sig.Confidence < pctx.ConfidenceThreshold {
		return Decision{
			Reason: DenyLowConfidence,
			Detail: fmt.Sprintf("signal confidence %.2f below threshold %.2f",
				sig.Confidence, pctx.ConfidenceThreshold),
		}
	}

	if pctx.CreatedToday >= pctx.MaxPerDay {
		return Decision{
			Reason: DenyDailyCap,
			Detail: fmt.Sprintf("%d interventions today, cap %d", pctx.CreatedToday, pctx.MaxPerDay),
		}
	}

	if pctx.LastCreatedAt != nil {
		elapsed := pctx.Now.Sub(*pctx.LastCreatedAt)
		cooldown := time.Duration(pctx.CooldownHours) * time.Hour
		if elapsed < cooldown {
			return Decision{
				Reason: DenyCooldown,
				Detail: fmt.Sprintf("%.1fh since last intervention, cooldown %dh",
					elapsed.Hours(), pctx.CooldownHours),
			}
		}
	}

	return Decision{
		Admitted: true,
		Detail:   fmt.Sprintf("admitted %s at confidence %.2f", sig.Type, sig.Confidence),
	}
}

// #endregion gate

// #region quiet-hours

// inQuietHours reports whether now's wall clock falls inside [start, end),
// wrapping midnight when start > end. Malformed quiet-hour strings disable
// the window rather than blocking every evaluation.
func inQuietHours(now time.Time, start, end string) bool {
	startMin, err := parseClock(start)
	if err != nil {
		return false
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// #endregion quiet-hours
