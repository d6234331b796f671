package biometrics

import (
	"context"
	"log/slog"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
)

// Classifier decides human versus automation for one session snapshot.
// Classification never returns an error: internal failures degrade to a
// fail-closed verdict so the caller always gets a decision.
type Classifier interface {
	Classify(ctx context.Context, snapshot *behavior.Snapshot) *behavior.Verdict
}

// classifier routes each request to the learned model when a behavior
// bundle is loaded and to the rule-based fallback otherwise. The check
// happens per request, so loading a model later upgrades classification
// without a restart.
type classifier struct {
	store     *bundle.Store
	learned   *Learned
	heuristic *Heuristic
	logger    *slog.Logger
}

// NewClassifier builds the switching classifier. store may be empty; the
// heuristic path serves until a bundle is loaded.
func NewClassifier(store *bundle.Store, logger *slog.Logger) Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &classifier{
		store:     store,
		learned:   NewLearned(store, logger),
		heuristic: NewHeuristic(),
		logger:    logger,
	}
}

func (c *classifier) Classify(ctx context.Context, snapshot *behavior.Snapshot) *behavior.Verdict {
	if _, ok := c.store.Current(); ok {
		return c.learned.Classify(ctx, snapshot)
	}
	return c.heuristic.Classify(ctx, snapshot)
}
