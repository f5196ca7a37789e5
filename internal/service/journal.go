package service

import (
	"context"

	"tiltguard/internal/models"
	"tiltguard/internal/store"
	"tiltguard/internal/validation"
)

// AddJournalEntry validates and stores a journal entry, snapshotting the
// user's current discipline score and revenge risk into it.
func (s *Service) AddJournalEntry(ctx context.Context, in *validation.JournalInput) (*models.JournalEntry, error) {
	entry, err := s.validator.Journal(in, s.now())
	if err != nil {
		return nil, err
	}

	report, err := s.Report(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}
	entry.DisciplineScoreAtEntry = report.Metrics.DisciplineScore
	entry.RevengeRiskAtEntry = report.Metrics.RevengeRisk

	if err := s.store.SaveJournalEntry(ctx, &entry); err != nil {
		s.recorder.RecordStoreError("save_journal")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", entry.UserID).
		Str("emotional_state", string(entry.EmotionalState)).
		Int("discipline", entry.DisciplineScoreAtEntry).
		Int("revenge_risk", entry.RevengeRiskAtEntry).
		Msg("Journal entry saved")
	return &entry, nil
}

// ListJournal returns a user's journal entries, newest first.
func (s *Service) ListJournal(ctx context.Context, userID string, limit int) ([]models.JournalEntry, error) {
	return s.store.GetJournal(ctx, store.JournalFilter{UserID: userID, Limit: limit})
}
