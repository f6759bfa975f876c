package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "nurture/pkg/domain"
	"nurture/pkg/sentinel"
)

type AnalysisRecordSuite struct {
	suite.Suite
	userID  id.UserID
	childID id.ChildID
}

func TestAnalysisRecordSuite(t *testing.T) {
	suite.Run(t, new(AnalysisRecordSuite))
}

func (s *AnalysisRecordSuite) SetupTest() {
	s.userID = id.UserID(uuid.New())
	s.childID = id.ChildID(uuid.New())
}

func (s *AnalysisRecordSuite) newPending() *Analysis {
	record, err := NewAnalysis(s.userID, s.childID, "My child refuses to go to bed at night", "")
	s.Require().NoError(err)
	return record
}

func (s *AnalysisRecordSuite) newProcessing() *Analysis {
	record := s.newPending()
	s.Require().NoError(record.StartProcessing())
	return record
}

func validRecommendation() *Recommendation {
	rec, _ := NewRecommendation(
		"The child seeks autonomy over the day's end",
		[]string{"Offer a choice between two bedtime routines"},
		[]string{"Keep a predictable evening rhythm"},
		[]string{"Do not turn bedtime into a power struggle"},
		ToneNeutral,
		0.9,
	)
	return rec
}

func (s *AnalysisRecordSuite) TestNewAnalysis() {
	s.Run("valid situation yields pending record", func() {
		record := s.newPending()
		s.Equal(StatusPending, record.Status)
		s.False(record.ID.IsNil())
		s.Equal(s.userID, record.UserID)
		s.Nil(record.Recommendation)
		s.Nil(record.CompletedAt)
		s.Empty(record.ErrorMessage)
		s.False(record.CreatedAt.IsZero())
	})

	s.Run("situation is trimmed before validation", func() {
		record, err := NewAnalysis(s.userID, s.childID, "   keeps throwing toys at dinner   ", "")
		s.Require().NoError(err)
		s.Equal("keeps throwing toys at dinner", record.Situation)
	})

	s.Run("too short situation rejected", func() {
		_, err := NewAnalysis(s.userID, s.childID, "too short", "")
		s.ErrorIs(err, sentinel.ErrInvalidSituation)
	})

	s.Run("whitespace padding does not rescue a short situation", func() {
		_, err := NewAnalysis(s.userID, s.childID, "     hi     ", "")
		s.ErrorIs(err, sentinel.ErrInvalidSituation)
	})

	s.Run("too long situation rejected", func() {
		_, err := NewAnalysis(s.userID, s.childID, strings.Repeat("a", MaxSituationLength+1), "")
		s.ErrorIs(err, sentinel.ErrInvalidSituation)
	})

	s.Run("boundary lengths accepted", func() {
		_, err := NewAnalysis(s.userID, s.childID, strings.Repeat("a", MinSituationLength), "")
		s.NoError(err)
		_, err = NewAnalysis(s.userID, s.childID, strings.Repeat("a", MaxSituationLength), "")
		s.NoError(err)
	})

	// Bounds are measured in characters, so multi-byte text must behave
	// exactly like ASCII of the same length.
	s.Run("short cyrillic situation rejected", func() {
		_, err := NewAnalysis(s.userID, s.childID, "привет", "")
		s.ErrorIs(err, sentinel.ErrInvalidSituation)
	})

	s.Run("cyrillic boundary lengths accepted", func() {
		_, err := NewAnalysis(s.userID, s.childID, strings.Repeat("б", MinSituationLength), "")
		s.NoError(err)
		_, err = NewAnalysis(s.userID, s.childID, strings.Repeat("б", MaxSituationLength), "")
		s.NoError(err)
	})

	s.Run("too long cyrillic situation rejected", func() {
		_, err := NewAnalysis(s.userID, s.childID, strings.Repeat("б", MaxSituationLength+1), "")
		s.ErrorIs(err, sentinel.ErrInvalidSituation)
	})
}

func (s *AnalysisRecordSuite) TestStartProcessing() {
	s.Run("pending to processing", func() {
		record := s.newPending()
		s.NoError(record.StartProcessing())
		s.Equal(StatusProcessing, record.Status)
	})

	s.Run("rejected from processing", func() {
		record := s.newProcessing()
		s.ErrorIs(record.StartProcessing(), sentinel.ErrIllegalTransition)
	})

	s.Run("rejected from terminal states", func() {
		completed := s.newProcessing()
		s.Require().NoError(completed.Complete(validRecommendation()))
		s.ErrorIs(completed.StartProcessing(), sentinel.ErrIllegalTransition)

		failed := s.newProcessing()
		s.Require().NoError(failed.Fail("boom"))
		s.ErrorIs(failed.StartProcessing(), sentinel.ErrIllegalTransition)
	})
}

func (s *AnalysisRecordSuite) TestComplete() {
	s.Run("processing to completed", func() {
		record := s.newProcessing()
		rec := validRecommendation()
		s.Require().NoError(record.Complete(rec))
		s.Equal(StatusCompleted, record.Status)
		s.Equal(rec, record.Recommendation)
		s.Require().NotNil(record.CompletedAt)
		s.Empty(record.ErrorMessage)
	})

	s.Run("rejected from pending", func() {
		record := s.newPending()
		s.ErrorIs(record.Complete(validRecommendation()), sentinel.ErrIllegalTransition)
	})

	s.Run("rejected from terminal states", func() {
		record := s.newProcessing()
		s.Require().NoError(record.Complete(validRecommendation()))
		s.ErrorIs(record.Complete(validRecommendation()), sentinel.ErrIllegalTransition)

		failed := s.newProcessing()
		s.Require().NoError(failed.Fail("boom"))
		s.ErrorIs(failed.Complete(validRecommendation()), sentinel.ErrIllegalTransition)
	})

	s.Run("nil recommendation rejected", func() {
		record := s.newProcessing()
		s.ErrorIs(record.Complete(nil), sentinel.ErrIllegalTransition)
	})
}

func (s *AnalysisRecordSuite) TestFail() {
	s.Run("processing to failed", func() {
		record := s.newProcessing()
		s.Require().NoError(record.Fail("gateway timeout"))
		s.Equal(StatusFailed, record.Status)
		s.Equal("gateway timeout", record.ErrorMessage)
		s.Nil(record.Recommendation)
		s.NotNil(record.CompletedAt)
	})

	s.Run("pending to failed is allowed", func() {
		record := s.newPending()
		s.NoError(record.Fail("rejected before processing"))
		s.Equal(StatusFailed, record.Status)
	})

	s.Run("rejected from terminal states", func() {
		record := s.newProcessing()
		s.Require().NoError(record.Fail("first"))
		s.ErrorIs(record.Fail("second"), sentinel.ErrIllegalTransition)
		s.Equal("first", record.ErrorMessage)
	})
}

// Once terminal, the completion timestamp must never move, no matter how
// many transitions are attempted and rejected.
func (s *AnalysisRecordSuite) TestTerminalStateIsImmutable() {
	record := s.newProcessing()
	s.Require().NoError(record.Complete(validRecommendation()))
	completedAt := *record.CompletedAt

	s.Error(record.StartProcessing())
	s.Error(record.Complete(validRecommendation()))
	s.Error(record.Fail("late failure"))

	s.Equal(completedAt, *record.CompletedAt)
	s.Equal(StatusCompleted, record.Status)
	s.Empty(record.ErrorMessage)
}

func TestNewRecommendation(t *testing.T) {
	t.Run("confidence outside range rejected", func(t *testing.T) {
		_, err := NewRecommendation("m", nil, nil, nil, ToneNeutral, 1.1)
		if err == nil {
			t.Fatal("expected error for confidence > 1")
		}
		_, err = NewRecommendation("m", nil, nil, nil, ToneNeutral, -0.1)
		if err == nil {
			t.Fatal("expected error for confidence < 0")
		}
	})

	t.Run("unknown tone becomes neutral", func(t *testing.T) {
		rec, err := NewRecommendation("m", nil, nil, nil, EmotionalTone("bogus"), 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if rec.EmotionalTone != ToneNeutral {
			t.Fatalf("expected neutral, got %s", rec.EmotionalTone)
		}
	})
}

func TestCoerceTone(t *testing.T) {
	cases := map[string]EmotionalTone{
		"positive":   TonePositive,
		"neutral":    ToneNeutral,
		"concerning": ToneConcerning,
		"urgent":     ToneUrgent,
		"bogus":      ToneNeutral,
		"":           ToneNeutral,
	}
	for raw, want := range cases {
		if got := CoerceTone(raw); got != want {
			t.Errorf("CoerceTone(%q) = %s, want %s", raw, got, want)
		}
	}
}
