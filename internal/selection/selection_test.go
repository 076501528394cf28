package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/ranking"
)

func uint8Ptr(v uint8) *uint8 { return &v }

func TestUserSuppliedListIsVerbatim(t *testing.T) {
	set, err := Select(Hint{Services: []string{"c", "a", "b"}}, gatewaytypes.Equality(), nil, ranking.NewDefault(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, set.Services)
	assert.Equal(t, gatewaytypes.OriginUserSupplied, set.Origin)
}

func TestEmptyUserListFails(t *testing.T) {
	_, err := Select(Hint{}, gatewaytypes.Equality(), []string{"a"}, ranking.NewDefault(), time.Now())
	var notFound *gatewaytypes.ProviderNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDefaultEqualityTakesTopThree(t *testing.T) {
	rank := ranking.NewDefault()
	now := time.Now()
	rank.RecordSuccess("c", now)
	rank.RecordSuccess("c", now)
	rank.RecordSuccess("d", now)

	set, err := Select(Hint{UseDefaults: true}, gatewaytypes.Equality(), []string{"a", "b", "c", "d"}, rank, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "a"}, set.Services)
	assert.Equal(t, gatewaytypes.OriginDefault, set.Origin)
}

func TestDefaultThresholdTakesTotal(t *testing.T) {
	set, err := Select(Hint{UseDefaults: true}, gatewaytypes.Threshold(uint8Ptr(2), 2), []string{"a", "b", "c"}, ranking.NewDefault(), time.Now())
	require.NoError(t, err)
	assert.Len(t, set.Services, 2)
}

func TestDefaultCountClampsToSupported(t *testing.T) {
	set, err := Select(Hint{UseDefaults: true}, gatewaytypes.Equality(), []string{"a", "b"}, ranking.NewDefault(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, set.Services)
}

func TestDefaultsWithNoSupportedProvidersFails(t *testing.T) {
	_, err := Select(Hint{UseDefaults: true}, gatewaytypes.Equality(), nil, ranking.NewDefault(), time.Now())
	var notFound *gatewaytypes.ProviderNotFoundError
	require.ErrorAs(t, err, &notFound)
}
