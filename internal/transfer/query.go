package transfer

import (
	"context"

	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
)

// Filter narrows List. Zero values mean "any".
type Filter = store.TransferFilter

// Get returns a transfer request by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.TransferRequest, error) {
	return load(ctx, s.core.DB, id)
}

// List returns transfer requests newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.TransferRequest, error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, model.Validation("unknown transfer status %q", f.Status)
	}
	transfers, err := store.ListTransfers(ctx, s.core.DB, f)
	if err != nil {
		return nil, err
	}
	if transfers == nil {
		transfers = []model.TransferRequest{}
	}
	return transfers, nil
}

// Stats counts transfer requests per status. Every status is present in the
// result, including those with no requests. Open counts requests not yet in
// a final status.
func (s *Service) Stats(ctx context.Context) (*model.TransferStats, error) {
	counts, err := store.CountTransfersByStatus(ctx, s.core.DB)
	if err != nil {
		return nil, err
	}

	stats := &model.TransferStats{ByStatus: make(map[model.TransferStatus]int, len(model.TransferStatuses))}
	for _, status := range model.TransferStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
		if !status.Terminal() {
			stats.Open += counts[status]
		}
	}
	return stats, nil
}

func validStatus(s model.TransferStatus) bool {
	for _, known := range model.TransferStatuses {
		if s == known {
			return true
		}
	}
	return false
}
