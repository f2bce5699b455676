package service

import (
	"time"

	"marathononline/training-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Overlaps is the open-interval test for [s1,e1) and [s2,e2).
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// RecordFromSubmission turns a raw device/sync payload into a candidate record.
// A heart rate of zero is how devices report "no sensor".
func RecordFromSubmission(userID primitive.ObjectID, raw domain.RawRecordSubmission) (domain.Record, error) {
	if raw.StartTime.IsZero() || raw.EndTime.IsZero() {
		return domain.Record{}, validationError("startTime and endTime are required")
	}
	if !raw.EndTime.After(raw.StartTime) {
		return domain.Record{}, validationError("endTime must be after startTime")
	}
	rec := domain.Record{
		UserID:    userID,
		Steps:     raw.Steps,
		Distance:  raw.Distance,
		AvgSpeed:  raw.AvgSpeed,
		HeartRate: raw.HeartRate,
		StartTime: raw.StartTime.UTC(),
		EndTime:   raw.EndTime.UTC(),
		Source:    domain.SourceThird,
	}
	if rec.HeartRate != nil && *rec.HeartRate == 0 {
		rec.HeartRate = nil
	}
	taken := int64(rec.EndTime.Sub(rec.StartTime) / time.Second)
	rec.TimeTaken = &taken
	return rec, nil
}

// MergeRecords folds candidate and the records it overlaps into a single
// record. With nothing to merge the candidate comes back unchanged.
// Aggregates skip nil inputs and stay nil when every input is nil.
func MergeRecords(candidate domain.Record, overlapping []domain.Record) domain.Record {
	if len(overlapping) == 0 {
		return candidate
	}
	all := make([]domain.Record, 0, len(overlapping)+1)
	all = append(all, candidate)
	all = append(all, overlapping...)

	merged := domain.Record{
		UserID:    candidate.UserID,
		StartTime: candidate.StartTime,
		EndTime:   candidate.EndTime,
		Source:    domain.SourceMerged,
	}
	var (
		heartSum   float64
		heartCount int
	)
	for _, r := range all {
		if r.StartTime.Before(merged.StartTime) {
			merged.StartTime = r.StartTime
		}
		if r.EndTime.After(merged.EndTime) {
			merged.EndTime = r.EndTime
		}
		merged.Distance = maxFloat(merged.Distance, r.Distance)
		merged.AvgSpeed = maxFloat(merged.AvgSpeed, r.AvgSpeed)
		if r.Steps != nil && (merged.Steps == nil || *r.Steps > *merged.Steps) {
			v := *r.Steps
			merged.Steps = &v
		}
		if r.HeartRate != nil {
			heartSum += *r.HeartRate
			heartCount++
		}
	}
	if heartCount > 0 {
		mean := heartSum / float64(heartCount)
		merged.HeartRate = &mean
	}

	duration := merged.EndTime.Sub(merged.StartTime)
	seconds := int64(duration / time.Second)
	merged.TimeTaken = &seconds
	if merged.Distance != nil && seconds > 0 {
		// m/s -> km/h
		speed := *merged.Distance / float64(seconds) * 3.6
		merged.AvgSpeed = &speed
	}
	return merged
}

func maxFloat(cur, next *float64) *float64 {
	if next == nil {
		return cur
	}
	if cur == nil || *next > *cur {
		v := *next
		return &v
	}
	return cur
}

// overlapping keeps the records that truly overlap rec.
func overlapping(rec domain.Record, candidates []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(candidates))
	for _, c := range candidates {
		if Overlaps(c.StartTime, c.EndTime, rec.StartTime, rec.EndTime) {
			out = append(out, c)
		}
	}
	return out
}
