package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/pkg/models"
)

func TestPrintParallelResultCleanRun(t *testing.T) {
	err := printParallelResult(&models.ParallelFetchResult{
		Table: "ev", TotalRows: 12, Successful: 3,
	})
	assert.NoError(t, err)
}

func TestPrintParallelResultPartialFailureExitsNonzero(t *testing.T) {
	err := printParallelResult(&models.ParallelFetchResult{
		Table: "ev", TotalRows: 8, Successful: 2, Failed: 1,
		FailedSliceKeys: []string{"2024-01-02"},
	})
	require.Error(t, err)
	assert.True(t, mperrors.IsKind(err, mperrors.KindPartial))
	assert.Equal(t, 1, mperrors.ExitCode(err))
}
