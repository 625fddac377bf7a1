package models

import "time"

// Decision is the tri-valued outcome of comparing two address records.
type Decision string

const (
	DecisionSame      Decision = "SAME"
	DecisionUnsure    Decision = "UNSURE"
	DecisionDifferent Decision = "DIFFERENT"
)

// MatchResult is the output of the scorer and, after arbitration, the judge.
type MatchResult struct {
	Decision      Decision               `json:"decision" bson:"decision"`
	Score         float64                `json:"score" bson:"score"`
	FeatureScores map[string]float64     `json:"feature_scores" bson:"feature_scores"`
	Evidence      map[string]interface{} `json:"evidence" bson:"evidence"`
}

// Conflict types surfaced by the conflict checker.
const (
	ConflictGridDistrictMismatch  = "GRID_DISTRICT_MISMATCH"
	ConflictClaimDistrictMismatch = "CLAIM_DISTRICT_MISMATCH"
)

// Conflict records a data-quality discrepancy on a single record.
type Conflict struct {
	RID          string    `json:"rid" bson:"rid"`
	ConflictType string    `json:"conflict_type" bson:"conflict_type"`
	Detail       string    `json:"detail" bson:"detail"`
	CreatedAt    time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// PreScore is one candidate's scorer output as persisted in the match log.
type PreScore struct {
	RID      string             `json:"rid" bson:"rid"`
	Decision Decision           `json:"decision" bson:"decision"`
	Score    float64            `json:"score" bson:"score"`
	Features map[string]float64 `json:"features" bson:"features"`
}

// MatchLog is the audit trail of one query record's judgement.
type MatchLog struct {
	RIDQuery      string      `json:"rid_query" bson:"rid_query"`
	CandidateRIDs []string    `json:"candidate_rids" bson:"candidate_rids"`
	PreScores     []PreScore  `json:"pre_scores" bson:"pre_scores"`
	Final         MatchResult `json:"final" bson:"final"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
}

// PairLabel is a human label over a record pair, consumed by the evaluator.
// Label is 1 when the two records denote the same physical location.
type PairLabel struct {
	RID1  string `json:"rid1" bson:"rid1"`
	RID2  string `json:"rid2" bson:"rid2"`
	Label int    `json:"label" bson:"label"`
}
