package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dverity/docdrill/pkg/domain"
)

// cleanupStack accumulates teardown obligations in arrival order and unwinds
// them in reverse: the most recently created resource is torn down first.
type cleanupStack struct {
	obligations []obligation
}

type obligation struct {
	description string
	run         func() error
}

func newCleanupStack() *cleanupStack {
	return &cleanupStack{}
}

func (c *cleanupStack) push(obs ...domain.CleanupObligation) {
	for _, o := range obs {
		if o.Run == nil {
			continue
		}
		c.obligations = append(c.obligations, obligation{description: o.Description, run: o.Run})
	}
}

// unwind runs every obligation last-in-first-out. Failures never abort the
// unwind: every remaining obligation still gets its chance, and each failure
// is reported as a warning on the instance.
func (c *cleanupStack) unwind(ctx context.Context, logger *slog.Logger) []string {
	var warnings []string
	for i := len(c.obligations) - 1; i >= 0; i-- {
		o := c.obligations[i]
		logger.DebugContext(ctx, "cleanup", "obligation", o.description)
		if err := o.run(); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", o.description, err))
			logger.WarnContext(ctx, "cleanup failed", "obligation", o.description, "err", err)
		}
	}
	c.obligations = nil
	return warnings
}
