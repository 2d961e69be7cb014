package core_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evomem-labs/evomem-go/pkg/core"
)

func newTestClient(t *testing.T) *core.Client {
	t.Helper()

	cfg := core.DefaultConfig()
	cfg.Memory.Dimension = 32

	client, err := core.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Memory.DecayFactor = 2.0

	_, err := core.NewClient(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestNewClientRejectsUnknownProviders(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Storage.Provider = "cassandra"
	_, err := core.NewClient(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	cfg = core.DefaultConfig()
	cfg.Embedder.Provider = "sentencepiece"
	_, err = core.NewClient(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestSubmitEventScenario(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// 30 chars, unit embedding, no importance or timestamp:
	// 0.5 + (30/500)·0.2 + 1.0·0.2 = 0.712, against the initial θ = 0.5.
	event, err := client.SubmitEvent(ctx, "User completed training module",
		core.WithUserID("u1"),
	)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "u1", event.UserID)
	assert.Len(t, event.Embedding, 32)
	assert.InDelta(t, 0.712, event.Significance, 1e-9)
	assert.InDelta(t, 0.5, event.Threshold, 1e-9)
	assert.Equal(t, event.Significance >= event.Threshold, event.LearningTriggered)
	assert.True(t, event.LearningTriggered)

	// Deterministic embedder, same content: same significance.
	again, err := client.SubmitEvent(ctx, "User completed training module",
		core.WithUserID("u1"),
	)
	require.NoError(t, err)
	assert.Equal(t, event.Significance, again.Significance)
	assert.NotEqual(t, event.EventID, again.EventID)
}

func TestSubmitEventRequiresUserID(t *testing.T) {
	client := newTestClient(t)

	_, err := client.SubmitEvent(context.Background(), "User completed training module")
	assert.ErrorIs(t, err, core.ErrValidation)

	var memErr *core.MemoryError
	require.ErrorAs(t, err, &memErr)
	assert.Equal(t, "SubmitEvent", memErr.Op)
}

func TestSubmitEventRejectsShortContent(t *testing.T) {
	client := newTestClient(t)

	_, err := client.SubmitEvent(context.Background(), "hi", core.WithUserID("u1"))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSubmitEventCarriesMetadata(t *testing.T) {
	client := newTestClient(t)

	metadata := map[string]interface{}{"source": "mobile"}
	event, err := client.SubmitEvent(context.Background(), "User completed training module",
		core.WithUserID("u1"),
		core.WithMetadata(metadata),
	)
	require.NoError(t, err)
	assert.Equal(t, metadata, event.Metadata)
}

func TestForceUpdateBypassesThreshold(t *testing.T) {
	ctx := context.Background()

	// A strict initial threshold keeps normal submissions from learning.
	cfg := core.DefaultConfig()
	cfg.Memory.Dimension = 32
	cfg.Significance.InitialThreshold = 0.99
	client, err := core.NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	normal, err := client.SubmitEvent(ctx, "User completed training module", core.WithUserID("u1"))
	require.NoError(t, err)
	assert.False(t, normal.LearningTriggered)

	forced, err := client.ForceUpdate(ctx, "User completed training module", core.WithUserID("u1"))
	require.NoError(t, err)
	assert.True(t, forced.LearningTriggered)
	assert.Greater(t, forced.StateChangeMagnitude, 0.0)
}

func TestGetMemoryStateAndReset(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.SubmitEvent(ctx, "User completed training module", core.WithUserID("u1"))
	require.NoError(t, err)

	state, err := client.GetMemoryState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.EventCount)
	assert.Len(t, state.Vector, 32)

	require.NoError(t, client.ResetMemory(ctx, "u1"))

	state, err = client.GetMemoryState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.EventCount)
}

func TestGetLearningMetrics(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	metrics, err := client.GetLearningMetrics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), metrics.EventCount)
	assert.Equal(t, 0.0, metrics.AvgSignificance)

	_, err = client.SubmitEvent(ctx, "User completed training module", core.WithUserID("u1"))
	require.NoError(t, err)

	metrics, err = client.GetLearningMetrics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", metrics.UserID)
	assert.Equal(t, int64(1), metrics.EventCount)
	assert.Equal(t, int64(1), metrics.SignificantEventCount)
	assert.Equal(t, 1.0, metrics.AvgSignificance)
}

func TestEncodeIdentityLevels(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	attrs := map[string]string{"name": "Jordan Smith", "region": "eu-west"}

	high, err := client.EncodeIdentity(ctx, "u1", attrs, core.WithPrivacyLevel("high"))
	require.NoError(t, err)
	medium, err := client.EncodeIdentity(ctx, "u1", attrs)
	require.NoError(t, err)
	low, err := client.EncodeIdentity(ctx, "u1", attrs, core.WithPrivacyLevel("low"))
	require.NoError(t, err)

	assert.Less(t, high.Epsilon, medium.Epsilon)
	assert.Less(t, medium.Epsilon, low.Epsilon)
	assert.Equal(t, "medium", medium.PrivacyLevel)
	assert.Len(t, medium.Embedding, 32)
}

func TestEncodeIdentityWithSensitiveFields(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	attrs := map[string]string{"name": "Jordan Smith", "region": "eu-west"}

	plain, err := client.EncodeIdentity(ctx, "u1", attrs)
	require.NoError(t, err)

	hashed, err := client.EncodeIdentity(ctx, "u1", attrs,
		core.WithSensitiveFields("name"))
	require.NoError(t, err)

	// Hashing a value changes what gets embedded; the field names survive.
	assert.NotEqual(t, plain.Embedding, hashed.Embedding)
	assert.Equal(t, []string{"name", "region"}, hashed.DataFields)
	assert.Len(t, hashed.Embedding, 32)
}

func TestEncodeIdentityValidation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.EncodeIdentity(ctx, "u1", nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = client.EncodeIdentity(ctx, "u1", map[string]string{"k": "v"},
		core.WithPrivacyLevel("paranoid"))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = client.EncodeIdentity(ctx, "", map[string]string{"k": "v"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCompareIdentitiesDimensionMismatch(t *testing.T) {
	client := newTestClient(t)

	idA := &core.EncodedIdentity{UserID: "a", Embedding: make([]float64, 256)}
	idB := &core.EncodedIdentity{UserID: "b", Embedding: make([]float64, 100)}

	_, err := client.CompareIdentities(context.Background(), idA, idB)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestCompareIdentities(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	attrs := map[string]string{"name": "Jordan Smith"}

	idA, err := client.EncodeIdentity(ctx, "u1", attrs)
	require.NoError(t, err)
	idB, err := client.EncodeIdentity(ctx, "u2", attrs)
	require.NoError(t, err)

	result, err := client.CompareIdentities(ctx, idA, idB)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Similarity, -1.0)
	assert.LessOrEqual(t, result.Similarity, 1.0)
	assert.Greater(t, result.PrivacyLoss, 0.0)

	// The comparison charge shows up in both owners' reports.
	for _, user := range []string{"u1", "u2"} {
		report, err := client.GetPrivacyReport(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 2, report.OperationCount)
	}
}

func TestVerifyPrivacyGuarantees(t *testing.T) {
	client := newTestClient(t)

	identity, err := client.EncodeIdentity(context.Background(), "u1",
		map[string]string{"name": "Jordan Smith"})
	require.NoError(t, err)

	result := client.VerifyPrivacyGuarantees(identity)
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Message)

	outOfBounds := client.VerifyPrivacyGuarantees(&core.EncodedIdentity{
		Epsilon: 1e6,
		Delta:   1e-5,
	})
	assert.False(t, outOfBounds.Valid)
	assert.NotEmpty(t, outOfBounds.Message)
}

func TestPrivacyLedgerSurvivesMemoryReset(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.EncodeIdentity(ctx, "u1", map[string]string{"name": "Jordan Smith"})
	require.NoError(t, err)

	require.NoError(t, client.ResetMemory(ctx, "u1"))

	report, err := client.GetPrivacyReport(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.OperationCount)
	assert.Greater(t, report.TotalLoss, 0.0)
}

func TestBatchProcessEventsPreservesOrder(t *testing.T) {
	client := newTestClient(t)

	inputs := make([]*core.EventInput, 16)
	for i := range inputs {
		inputs[i] = &core.EventInput{
			Content: fmt.Sprintf("Event number %d happened to this user", i),
			Options: []core.EventOption{core.WithUserID(fmt.Sprintf("user-%d", i%4))},
		}
	}

	results := client.BatchProcessEvents(context.Background(), inputs)
	require.Len(t, results, len(inputs))

	for i, result := range results {
		require.NoError(t, result.Error)
		assert.Equal(t, inputs[i].Content, result.Event.Content)
		assert.Equal(t, fmt.Sprintf("user-%d", i%4), result.Event.UserID)
	}
}

func TestBatchProcessEventsIsolatesFailures(t *testing.T) {
	client := newTestClient(t)

	inputs := []*core.EventInput{
		{Content: "A perfectly fine event", Options: []core.EventOption{core.WithUserID("u1")}},
		{Content: "bad"}, // too short, and missing user ID
		{Content: "Another perfectly fine event", Options: []core.EventOption{core.WithUserID("u2")}},
	}

	results := client.BatchProcessEvents(context.Background(), inputs)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Error)
	assert.ErrorIs(t, results[1].Error, core.ErrValidation)
	assert.Nil(t, results[1].Event)
	assert.NoError(t, results[2].Error)
}

func TestBatchEncodeIdentitiesPreservesOrder(t *testing.T) {
	client := newTestClient(t)

	inputs := []*core.IdentityInput{
		{UserID: "u1", Attributes: map[string]string{"name": "A"}},
		{UserID: "u2", Attributes: nil}, // invalid: empty attributes
		{UserID: "u3", Attributes: map[string]string{"name": "C"},
			Options: []core.IdentityOption{core.WithPrivacyLevel("high")}},
	}

	results := client.BatchEncodeIdentities(context.Background(), inputs)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Error)
	assert.Equal(t, "u1", results[0].Identity.UserID)

	assert.ErrorIs(t, results[1].Error, core.ErrValidation)
	assert.Nil(t, results[1].Identity)

	require.NoError(t, results[2].Error)
	assert.Equal(t, "high", results[2].Identity.PrivacyLevel)
}
