package formance

import (
	"context"
	"fmt"
	"time"

	"storefront-deposits-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Numscript templates. Metadata is set inside the script so every transaction
// is self-describing.

const numscriptCredit = `vars {
  asset $asset
  number $amount
  account $user_id
  string $kind
  string $deposit_id
  string $amount_human
}

send [$asset $amount] (
  source = @world
  destination = @users:$user_id
)

set_tx_meta("event_type", $kind)
set_tx_meta("deposit_id", $deposit_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptDebit = `vars {
  asset $asset
  number $amount
  account $user_id
  string $kind
  string $deposit_id
  string $amount_human
}

send [$asset $amount] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @world
)

set_tx_meta("event_type", $kind)
set_tx_meta("deposit_id", $deposit_id)
set_tx_meta("amount_human", $amount_human)
`

// Mirror posts one balance movement. The entry reference is the Formance
// transaction reference, so replays of the same entry are absorbed as conflicts.
func (s *Service) Mirror(ctx context.Context, entry store.MirrorEntry) error {
	if entry.UserId == "" || entry.Reference == "" {
		return fmt.Errorf("%w: mirror entry requires user id and reference", store.ErrValidation)
	}
	if entry.Amount.IsZero() {
		return nil
	}

	script, smallAmt := scriptFor(entry.Amount)
	postTx := shared.V2PostTransaction{
		Reference: strPtr(entry.Reference),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars: map[string]string{
				"asset":        formanceAsset(mirrorAsset),
				"amount":       smallAmt,
				"user_id":      entry.UserId,
				"kind":         entry.Kind,
				"deposit_id":   entry.DepositId,
				"amount_human": entry.Amount.StringFixed(2),
			},
		},
	}
	if !entry.Timestamp.IsZero() {
		ts := entry.Timestamp.UTC()
		postTx.Timestamp = &ts
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Mirror entry already recorded",
				zap.String("reference", entry.Reference))
			return nil
		}
		return fmt.Errorf("error mirroring %s for user %s: %w", entry.Kind, entry.UserId, err)
	}

	zap.L().Info("Balance movement mirrored to Formance",
		zap.String("reference", entry.Reference),
		zap.String("user_id", entry.UserId),
		zap.String("kind", entry.Kind),
		zap.String("amount", entry.Amount.String()),
		zap.Time("timestamp", entry.Timestamp.Truncate(time.Second)))
	return nil
}

// scriptFor picks the credit or debit template and returns the absolute amount
// in smallest units.
func scriptFor(amount decimal.Decimal) (string, string) {
	small := smallestUnits(amount.Abs())
	if amount.IsNegative() {
		return numscriptDebit, small
	}
	return numscriptCredit, small
}

func smallestUnits(amount decimal.Decimal) string {
	return amount.Shift(int32(precisionFor(mirrorAsset))).Round(0).BigInt().String()
}
