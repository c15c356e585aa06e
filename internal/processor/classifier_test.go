package processor

import (
	"os"
	"path/filepath"
	"testing"

	"storefront-deposits-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassifier(t *testing.T) {
	c := DefaultClassifier()
	assert.Equal(t, BucketSuccess, c.Classify("PAYMENT.CAPTURE.COMPLETED"))
	assert.Equal(t, BucketSuccess, c.Classify("checkout.order.completed"))
	assert.Equal(t, BucketPending, c.Classify("PAYMENT.CAPTURE.PENDING"))
	assert.Equal(t, BucketFailed, c.Classify("PAYMENT.CAPTURE.DENIED"))
	assert.Equal(t, BucketRefunded, c.Classify("PAYMENT.CAPTURE.REFUNDED"))
	assert.Equal(t, BucketUnknown, c.Classify("BILLING.PLAN.CREATED"))

	status, ok := BucketRefunded.Status()
	assert.True(t, ok)
	assert.Equal(t, models.DepositStatusRefunded, status)
	_, ok = BucketUnknown.Status()
	assert.False(t, ok)
}

func TestLoadClassifierOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
events:
  success:
    - payment.order.captured
  failed:
    - PAYMENT.CAPTURE.COMPLETED
`), 0o600))

	c, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, BucketSuccess, c.Classify("PAYMENT.ORDER.CAPTURED"))
	assert.Equal(t, BucketFailed, c.Classify("PAYMENT.CAPTURE.COMPLETED"))
	assert.Equal(t, BucketPending, c.Classify("PAYMENT.CAPTURE.PENDING"))
}

func TestLoadClassifierErrors(t *testing.T) {
	c, err := LoadClassifier("")
	require.NoError(t, err)
	assert.Equal(t, BucketSuccess, c.Classify("PAYMENT.SALE.COMPLETED"))

	_, err = LoadClassifier(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  settled:\n    - X\n"), 0o600))
	_, err = LoadClassifier(path)
	assert.Error(t, err)
}
