package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordSource tells where a canonical record came from.
type RecordSource string

const (
	SourceDevice RecordSource = "DEVICE"
	SourceThird  RecordSource = "THIRD"
	SourceMerged RecordSource = "MERGED"
)

// ApprovalStatus is the outcome of the fraud check.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// RecordApproval is embedded 1:1 in its record.
type RecordApproval struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ApprovalStatus ApprovalStatus     `bson:"approvalStatus" json:"approvalStatus"`
	FraudRisk      float64            `bson:"fraudRisk" json:"fraudRisk"` // 0-100
	FraudType      string             `bson:"fraudType,omitempty" json:"fraudType,omitempty"`
	ReviewNote     string             `bson:"reviewNote,omitempty" json:"reviewNote,omitempty"`
}

// Record is a canonical (post-merge) activity entry.
// Optional measurements are pointers; nil means the source did not report it.
type Record struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Steps     *int               `bson:"steps,omitempty" json:"steps,omitempty"`
	Distance  *float64           `bson:"distance,omitempty" json:"distance,omitempty"`   // metres
	TimeTaken *int64             `bson:"timeTaken,omitempty" json:"timeTaken,omitempty"` // seconds
	AvgSpeed  *float64           `bson:"avgSpeed,omitempty" json:"avgSpeed,omitempty"`   // km/h
	HeartRate *float64           `bson:"heartRate,omitempty" json:"heartRate,omitempty"`
	StartTime time.Time          `bson:"startTime" json:"startTime"`
	EndTime   time.Time          `bson:"endTime" json:"endTime"`
	Source    RecordSource       `bson:"source" json:"source"`
	Approval  *RecordApproval    `bson:"approval,omitempty" json:"approval,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Approved reports whether the record counts toward training completion.
func (r *Record) Approved() bool {
	return r.Approval != nil && r.Approval.ApprovalStatus == ApprovalApproved
}

// RawRecordSubmission is what a device or third-party sync sends us.
type RawRecordSubmission struct {
	Steps     *int      `json:"steps"`
	Distance  *float64  `json:"distance"`
	AvgSpeed  *float64  `json:"avgSpeed"`
	HeartRate *float64  `json:"heartRate"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// RunningStats summarises a runner's approved history.
type RunningStats struct {
	MaxDistance float64 // km
	AveragePace float64 // min/km
}
