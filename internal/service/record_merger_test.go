package service

import (
	"testing"
	"time"

	"marathononline/training-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 int
		want           bool
	}{
		{"disjoint", 0, 10, 20, 30, false},
		{"touching end to start", 0, 10, 10, 20, false},
		{"partial", 0, 10, 5, 15, true},
		{"contained", 0, 30, 10, 20, true},
		{"identical", 0, 10, 0, 10, true},
		{"one minute shared", 0, 11, 10, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(at(tt.s1), at(tt.e1), at(tt.s2), at(tt.e2))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Overlaps(at(tt.s2), at(tt.e2), at(tt.s1), at(tt.e1)), "overlap must be symmetric")
		})
	}
}

func TestMergeRecords_NothingToMerge(t *testing.T) {
	candidate := domain.Record{
		UserID:    primitive.NewObjectID(),
		Distance:  ptrF(1000),
		StartTime: at(0),
		EndTime:   at(10),
		Source:    domain.SourceThird,
	}
	assert.Equal(t, candidate, MergeRecords(candidate, nil))
}

func TestMergeRecords_Many(t *testing.T) {
	user := primitive.NewObjectID()
	candidate := domain.Record{UserID: user, Steps: ptrI(3000), Distance: ptrF(2500), HeartRate: ptrF(150), StartTime: at(10), EndTime: at(30)}
	existing := []domain.Record{
		{ID: primitive.NewObjectID(), UserID: user, Steps: ptrI(5000), Distance: ptrF(2000), HeartRate: ptrF(140), StartTime: at(0), EndTime: at(20)},
		{ID: primitive.NewObjectID(), UserID: user, Distance: ptrF(4000), StartTime: at(25), EndTime: at(40)},
	}

	merged := MergeRecords(candidate, existing)

	assert.Equal(t, domain.SourceMerged, merged.Source)
	assert.True(t, merged.ID.IsZero())
	assert.Equal(t, user, merged.UserID)
	assert.Equal(t, at(0), merged.StartTime)
	assert.Equal(t, at(40), merged.EndTime)
	require.NotNil(t, merged.TimeTaken)
	assert.Equal(t, int64(40*60), *merged.TimeTaken)
	require.NotNil(t, merged.Distance)
	assert.Equal(t, 4000.0, *merged.Distance)
	require.NotNil(t, merged.Steps)
	assert.Equal(t, 5000, *merged.Steps)
	require.NotNil(t, merged.HeartRate)
	assert.InDelta(t, 145.0, *merged.HeartRate, 1e-9)
	require.NotNil(t, merged.AvgSpeed)
	// 4000 m in 2400 s
	assert.InDelta(t, 6.0, *merged.AvgSpeed, 1e-9)

	// inputs untouched
	assert.Equal(t, 2500.0, *candidate.Distance)
}

func TestMergeRecords_NullAggregatesStayNull(t *testing.T) {
	candidate := domain.Record{AvgSpeed: ptrF(9.5), StartTime: at(0), EndTime: at(10)}
	other := domain.Record{AvgSpeed: ptrF(11), StartTime: at(5), EndTime: at(15)}

	merged := MergeRecords(candidate, []domain.Record{other})

	assert.Nil(t, merged.Distance)
	assert.Nil(t, merged.Steps)
	assert.Nil(t, merged.HeartRate)
	require.NotNil(t, merged.AvgSpeed)
	assert.Equal(t, 11.0, *merged.AvgSpeed)
}

func TestMergeRecords_SingleIntervalForAnyN(t *testing.T) {
	for n := 1; n <= 5; n++ {
		candidate := domain.Record{StartTime: at(50), EndTime: at(60)}
		var others []domain.Record
		for i := 0; i < n; i++ {
			others = append(others, domain.Record{StartTime: at(55 - 10*i), EndTime: at(58 + 7*i)})
		}
		merged := MergeRecords(candidate, others)
		assert.Equal(t, minStart(append(others, candidate)), merged.StartTime)
		assert.Equal(t, maxEnd(append(others, candidate)), merged.EndTime)
	}
}

func minStart(rs []domain.Record) time.Time {
	m := rs[0].StartTime
	for _, r := range rs {
		if r.StartTime.Before(m) {
			m = r.StartTime
		}
	}
	return m
}

func maxEnd(rs []domain.Record) time.Time {
	m := rs[0].EndTime
	for _, r := range rs {
		if r.EndTime.After(m) {
			m = r.EndTime
		}
	}
	return m
}

func TestRecordFromSubmission(t *testing.T) {
	user := primitive.NewObjectID()
	rec, err := RecordFromSubmission(user, domain.RawRecordSubmission{
		Steps:     ptrI(1200),
		Distance:  ptrF(1500),
		HeartRate: ptrF(0),
		StartTime: at(0),
		EndTime:   at(12),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceThird, rec.Source)
	assert.Nil(t, rec.HeartRate)
	require.NotNil(t, rec.TimeTaken)
	assert.Equal(t, int64(720), *rec.TimeTaken)

	_, err = RecordFromSubmission(user, domain.RawRecordSubmission{StartTime: at(10), EndTime: at(10)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = RecordFromSubmission(user, domain.RawRecordSubmission{EndTime: at(10)})
	assert.ErrorIs(t, err, ErrValidation)
}
