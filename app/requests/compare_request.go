package requests

// CompareRequest is the payload of POST /compare: two raw address texts and
// whether the LLM arbitrator may be consulted for this call.
type CompareRequest struct {
	Addr1  string `json:"addr1" binding:"required"`
	Addr2  string `json:"addr2" binding:"required"`
	UseLLM bool   `json:"use_llm,omitempty"`
}

// SeedRequest controls the size of the synthetic corpus.
type SeedRequest struct {
	NEntities         int   `json:"n_entities,omitempty"`
	VariantsPerEntity int   `json:"variants_per_entity,omitempty"`
	Seed              int64 `json:"seed,omitempty"`
}

// Defaults fills in the reference corpus dimensions for omitted fields.
func (r *SeedRequest) Defaults() {
	if r.NEntities <= 0 {
		r.NEntities = 40
	}
	if r.VariantsPerEntity <= 0 {
		r.VariantsPerEntity = 4
	}
	if r.Seed == 0 {
		r.Seed = 42
	}
}

// RunRequest controls one pipeline run.
type RunRequest struct {
	UseLLM bool `json:"use_llm,omitempty"`
}

// EvaluateRequest selects plain evaluation or a threshold/weight grid search.
type EvaluateRequest struct {
	GridSearch bool `json:"grid_search,omitempty"`
}
