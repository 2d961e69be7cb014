package core

import (
	"github.com/evomem-labs/evomem-go/pkg/memstate"
	"github.com/evomem-labs/evomem-go/pkg/privacy"
	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// toMemoryState converts a storage record to the public type. The vector is
// copied so callers cannot mutate engine state.
func toMemoryState(state *storage.MemoryState) *MemoryState {
	vector := make([]float64, len(state.Vector))
	copy(vector, state.Vector)

	return &MemoryState{
		UserID:                state.UserID,
		Dimension:             state.Dimension,
		Vector:                vector,
		EventCount:            state.EventCount,
		SignificantEventCount: state.SignificantEventCount,
		LastUpdateAt:          state.LastUpdateAt,
		CreatedAt:             state.CreatedAt,
	}
}

// toLearningMetrics converts engine metrics to the public type.
func toLearningMetrics(userID string, metrics *memstate.Metrics) *LearningMetrics {
	return &LearningMetrics{
		UserID:                userID,
		EventCount:            metrics.EventCount,
		SignificantEventCount: metrics.SignificantEventCount,
		AvgSignificance:       metrics.AvgSignificance,
		Threshold:             metrics.Threshold,
		LastUpdateAt:          metrics.LastUpdateAt,
	}
}

// toEncodedIdentity converts an encoder identity to the public type.
func toEncodedIdentity(identity *privacy.EncodedIdentity) *EncodedIdentity {
	return &EncodedIdentity{
		IdentityID:   identity.IdentityID,
		UserID:       identity.UserID,
		Embedding:    identity.Embedding,
		Epsilon:      identity.Epsilon,
		Delta:        identity.Delta,
		PrivacyLevel: string(identity.PrivacyLevel),
		NoiseScale:   identity.NoiseScale,
		DataFields:   identity.DataFields,
		CreatedAt:    identity.CreatedAt,
	}
}

// fromEncodedIdentity converts the public identity type back to the encoder's.
func fromEncodedIdentity(identity *EncodedIdentity) *privacy.EncodedIdentity {
	return &privacy.EncodedIdentity{
		IdentityID:   identity.IdentityID,
		UserID:       identity.UserID,
		Embedding:    identity.Embedding,
		Epsilon:      identity.Epsilon,
		Delta:        identity.Delta,
		PrivacyLevel: privacy.Level(identity.PrivacyLevel),
		NoiseScale:   identity.NoiseScale,
		DataFields:   identity.DataFields,
		CreatedAt:    identity.CreatedAt,
	}
}

// toPrivacyReport converts an encoder report to the public type.
func toPrivacyReport(report *privacy.Report) *PrivacyReport {
	return &PrivacyReport{
		UserID:          report.UserID,
		OperationCount:  report.OperationCount,
		Epsilons:        report.Epsilons,
		TotalLoss:       report.TotalLoss,
		Delta:           report.Delta,
		BudgetLimit:     report.BudgetLimit,
		RemainingBudget: report.RemainingBudget,
		Enforced:        report.Enforced,
	}
}
