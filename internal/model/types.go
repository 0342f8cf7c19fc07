package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one engine run. It never carries population state.
type RunRecord struct {
	VersionedRecord
	ID               string  `json:"id"`
	Scape            string  `json:"scape"`
	Selection        string  `json:"selection"`
	SelectionParam   int     `json:"selection_param,omitempty"`
	PopulationSize   int     `json:"population_size"`
	GenerationLimit  int     `json:"generation_limit"`
	Generations      int     `json:"generations"`
	FitnessTarget    float64 `json:"fitness_target,omitempty"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	Evaluations      int     `json:"evaluations"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	Champion         string  `json:"champion,omitempty"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	DurationMillis   int64   `json:"duration_ms"`
}

type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	OffspringCount int     `json:"offspring_count"`
	Evaluations    int     `json:"evaluations"`
	ScoredCount    int     `json:"scored_count"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	TotalWeight    float64 `json:"total_weight"`
	SelectedCount  int     `json:"selected_count"`
	DistinctCount  int     `json:"distinct_selected"`
}
