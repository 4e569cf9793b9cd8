package operation

import (
	"context"

	"github.com/walteh/shredsync/pkg/status"
)

// 📋 ListOperation reports eligible folders without transferring or recording anything
type ListOperation struct {
	BaseOperation
}

// 🏭 NewListOperation creates a list operation
func NewListOperation(ctx context.Context, opts Options) (*ListOperation, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &ListOperation{BaseOperation: NewBaseOperation(ctx, opts, status.ModeList)}, nil
}

// 🏃 Execute runs the list operation
func (op *ListOperation) Execute(ctx context.Context) error {
	sel, now, err := op.scanAndSelect(ctx)
	if err != nil {
		return err
	}

	for _, rec := range sel.Eligible {
		o := outcomeFor(rec, now)
		o.Status = status.StatusEligible
		if op.History.IsProcessed(rec.ID) {
			o.Status = status.StatusSkipped
		}
		if op.Executor != nil {
			o.Destination = op.Executor.Destination(rec)
		}
		op.report.Track(ctx, o)
	}

	return nil
}
