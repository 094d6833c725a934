package certificate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/scoring"
)

func testSpace() *model.Space {
	hood := "Arroios"
	return &model.Space{
		Name:         "Cozy T1 in Arroios",
		City:         "Lisboa",
		Neighborhood: &hood,
		PropertyType: "T1",
		Floor:        "2",
		AreaM2:       45.5,
	}
}

func TestSpace_NormalTier(t *testing.T) {
	cert, err := newTestBuilder().Space(context.Background(), SpaceInput{Space: testSpace(), Tier: model.TierNormal})
	require.NoError(t, err)

	assert.Equal(t, "T1 in Arroios", cert.PropertyIdentity.Title)
	assert.Equal(t, 45.5, cert.PropertyIdentity.AreaM2)
	assert.Equal(t, scoring.StateBalanced, cert.ExperienceBarometer.State)
	assert.Equal(t, fixedNow, cert.Meta.GeneratedAt)

	keys := topLevelKeys(t, cert)
	for _, k := range []string{"silence_and_drift", "peer_gravity", "experience_tension", "strategic_risks", "evidence"} {
		assert.NotContains(t, keys, k)
	}
}

func TestSpace_ProTier(t *testing.T) {
	cert, err := newTestBuilder().Space(context.Background(), SpaceInput{Space: testSpace(), Tier: model.TierPro})
	require.NoError(t, err)

	keys := topLevelKeys(t, cert)
	for _, k := range []string{"silence_and_drift", "peer_gravity", "experience_tension", "strategic_risks", "evidence"} {
		assert.Contains(t, keys, k)
	}

	assert.Equal(t, "T1 apartments in Lisboa central areas", cert.PeerGravity.ComparableSegment)
	assert.Equal(t, "Mid-market positioned", cert.PeerGravity.PerceivedPosition)
	assert.Equal(t, "Property competes with similar T1 units. Floor position is typical for segment.", cert.PeerGravity.Explanation)
	assert.Equal(t, "Lift dependency and breakdown response time", cert.SilenceAndDrift.HiddenRisks[0])
	assert.Equal(t, []string{
		"Upper-floor privacy traded for lift dependency",
		"Larger space traded for higher utility costs",
	}, cert.ExperienceTension.Compensations)
	assert.Equal(t, model.SeverityLow, cert.StrategicRisks.Risks[0].Severity)
	assert.Len(t, cert.Evidence.PhotoObservations, 3)
}

func TestSpace_ProGroundCompact(t *testing.T) {
	sp := testSpace()
	sp.Floor = model.FloorGround
	sp.AreaM2 = 32
	sp.Neighborhood = nil

	cert, err := newTestBuilder().Space(context.Background(), SpaceInput{Space: sp, Tier: model.TierPro})
	require.NoError(t, err)

	assert.Equal(t, "T1 in Lisboa", cert.PropertyIdentity.Title)
	assert.Equal(t, "Entry-level positioned", cert.PeerGravity.PerceivedPosition)
	assert.Equal(t, "Street-level noise and privacy exposure", cert.SilenceAndDrift.HiddenRisks[0])
	assert.Equal(t, []string{
		"Ground access traded for reduced privacy",
		"Compact scale traded for maintenance simplicity",
	}, cert.ExperienceTension.Compensations)
	assert.Equal(t, "Street-level noise management", cert.ExperienceTension.Dependencies[2])
	assert.Equal(t, model.SeverityMedium, cert.StrategicRisks.Risks[0].Severity)
}

func TestSpace_Overrides(t *testing.T) {
	cert, err := newTestBuilder().Space(context.Background(), SpaceInput{
		Space:     testSpace(),
		Tier:      model.TierNormal,
		Overrides: &model.StateOverrides{State: scoring.StateStrong},
	})
	require.NoError(t, err)
	assert.Equal(t, scoring.StateStrong, cert.ExperienceBarometer.State)
}

func TestSpace_InvalidTier(t *testing.T) {
	_, err := newTestBuilder().Space(context.Background(), SpaceInput{Space: testSpace(), Tier: ""})
	assert.ErrorContains(t, err, "invalid tier")
}
