package fl

import "errors"

var (
	ErrNoUpdates         = errors.New("no updates provided for aggregation")
	ErrOverflow          = errors.New("sample count overflow during aggregation")
	ErrDimensionMismatch = errors.New("parameter dimension mismatch")
	ErrEmptyDataset      = errors.New("dataset has no samples")
)
