package reconcile

import (
	"fmt"
	"math/big"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

var one = big.NewInt(1)

// NormalizeRemaining maps the contract's raw remaining encoding to the true
// remaining-to-fill amount. The contract stores actualRemaining+1 and
// reserves zero for "never touched", so zero means the full making amount and
// any positive value is off by one.
func NormalizeRemaining(raw, makingAmount *big.Int) *big.Int {
	if raw.Sign() == 0 {
		return new(big.Int).Set(makingAmount)
	}
	return new(big.Int).Sub(raw, one)
}

// Reconcile turns broadcast records and their positionally matching raw
// remaining reads into the derived order view. A nil entry in rawRemainings
// means that read failed; zero is a meaningful sentinel, so a missing value
// makes the whole round indeterminate (ErrPollIncomplete) rather than
// defaulting anything. Input order is preserved.
func Reconcile(records []model.BroadcastRecord, rawRemainings []*big.Int) ([]model.ReconciledOrder, error) {
	if len(records) != len(rawRemainings) {
		return nil, fmt.Errorf("%w: %d records, %d remaining reads",
			model.ErrPollIncomplete, len(records), len(rawRemainings))
	}
	for i, raw := range rawRemainings {
		if raw == nil {
			return nil, fmt.Errorf("%w: remaining read missing for %s",
				model.ErrPollIncomplete, records[i].OrderHash.Hex())
		}
	}

	reconciled := make([]model.ReconciledOrder, 0, len(records))
	for i, rec := range records {
		remaining := NormalizeRemaining(rawRemainings[i], rec.Order.MakingAmount)
		reconciled = append(reconciled, model.ReconciledOrder{
			OrderHash:       rec.OrderHash,
			MakerAsset:      rec.Order.MakerAsset,
			TakerAsset:      rec.Order.TakerAsset,
			MakingAmount:    rec.Order.MakingAmount,
			TakingAmount:    rec.Order.TakingAmount,
			Remaining:       remaining,
			IsOpen:          remaining.Sign() > 0,
			TransactionHash: rec.TransactionHash,
		})
	}
	return reconciled, nil
}
