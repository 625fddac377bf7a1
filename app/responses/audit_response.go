package responses

import (
	"github.com/address-audit/app/models"
)

// CompareResponse is the outcome of a stateless pair comparison.
type CompareResponse struct {
	Decision      models.Decision        `json:"decision"`
	Score         float64                `json:"score"`
	FeatureScores map[string]float64     `json:"feature_scores"`
	Evidence      map[string]interface{} `json:"evidence"`
	Addr1Parsed   *models.ParsedAddress  `json:"addr1_parsed,omitempty"`
	Addr2Parsed   *models.ParsedAddress  `json:"addr2_parsed,omitempty"`
	UseLLM        bool                   `json:"use_llm"`
}

// RunSummary is the result of one full pipeline run.
type RunSummary struct {
	NRecords     int `json:"n_records"`
	NConflicts   int `json:"n_conflicts"`
	NClustersGt1 int `json:"n_clusters_gt1"`
}

// SeedSummary reports what the seeder wrote.
type SeedSummary struct {
	NRoads      int  `json:"n_roads"`
	NPOIs       int  `json:"n_pois"`
	NAnchors    int  `json:"n_anchors"`
	NRecords    int  `json:"n_records"`
	NPairLabels int  `json:"n_pair_labels"`
	POIIndexed  bool `json:"poi_indexed"`
}

// EvalMetrics is the confusion matrix over labeled pairs, where a pair is
// predicted positive iff both records landed in the same cluster.
type EvalMetrics struct {
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	TN        int     `json:"tn"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// GridSearchResult is the best scorer configuration found over the labeled
// pairs, direct pair scoring without re-running the pipeline.
type GridSearchResult struct {
	BestWeights    map[string]float64 `json:"best_weights"`
	BestThresholds map[string]float64 `json:"best_thresholds"`
	Best           EvalMetrics        `json:"best"`
	Combinations   int                `json:"combinations"`
}

// ErrorResponse is the uniform error payload: a stable code plus a
// human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResponse is the GET /health payload.
type HealthCheckResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
