package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveExportCountsByResult(t *testing.T) {
	ok := testutil.ToFloat64(exportTotal.WithLabelValues(ResultSuccess))
	failed := testutil.ToFloat64(exportTotal.WithLabelValues(ResultError))

	ObserveExport(time.Now(), nil)
	ObserveExport(time.Now(), errors.New("boom"))
	ObserveExport(time.Now(), nil)

	assert.Equal(t, ok+2, testutil.ToFloat64(exportTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, failed+1, testutil.ToFloat64(exportTotal.WithLabelValues(ResultError)))
}

func TestObserveImportUnknownVersion(t *testing.T) {
	before := testutil.ToFloat64(importTotal.WithLabelValues(ResultError, "unknown"))
	ObserveImport(time.Now(), "", errors.New("no version"))
	assert.Equal(t, before+1, testutil.ToFloat64(importTotal.WithLabelValues(ResultError, "unknown")))
}

func TestObserveConversion(t *testing.T) {
	before := testutil.ToFloat64(conversionSteps.WithLabelValues("4.4", "5.0"))
	ObserveConversion("4.4", "5.0")
	assert.Equal(t, before+1, testutil.ToFloat64(conversionSteps.WithLabelValues("4.4", "5.0")))
}
