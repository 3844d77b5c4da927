package dto

import "time"

// InstanceSize summarizes the dimensions of an instance
type InstanceSize struct {
	Products         int `json:"products"`
	Facilities       int `json:"facilities"`
	MaxDistributions int `json:"max_distributions"`
	MaxScenarios     int `json:"max_scenarios"`
}

// RunRecord is the one-row summary of a decomposition run kept in a results file
type RunRecord struct {
	Version string
	InstanceSize
	Experiment    string
	Gap           float64
	BestInteger   float64
	BestBound     float64
	SolutionTime  time.Duration
	RootTime      time.Duration
	RootBound     float64
	Nodes         int64
	Cuts          int64
	CallbackTime  time.Duration
	CallbackCalls int64
	InstanceFile  string
	RecordedAt    time.Time
}

// NewRunRecord flattens a result
func NewRunRecord(r *SolveResult, version, instanceFile string, at time.Time) RunRecord {
	return RunRecord{
		Version:       version,
		InstanceSize:  r.Size,
		Experiment:    r.Experiment,
		Gap:           r.Gap,
		BestInteger:   r.Objective,
		BestBound:     r.BestBound,
		SolutionTime:  r.SolveTime,
		RootTime:      r.RootTime,
		RootBound:     r.RootBound,
		Nodes:         r.Nodes,
		Cuts:          r.Cuts,
		CallbackTime:  r.CallbackTime,
		CallbackCalls: r.Candidates,
		InstanceFile:  instanceFile,
		RecordedAt:    at,
	}
}

// EEVRecord is the one-row summary of an EEV computation
type EEVRecord struct {
	Version string
	InstanceSize
	// Experiment is eev- followed by the expected-value mode
	Experiment     string
	EEV            float64
	EVSolutionTime time.Duration
	EVGap          float64
	InstanceFile   string
	RecordedAt     time.Time
}

// NewEEVRecord flattens an EEV result
func NewEEVRecord(r *EEVResult, version, instanceFile string, at time.Time) EEVRecord {
	return EEVRecord{
		Version:        version,
		InstanceSize:   r.Size,
		Experiment:     "eev-" + r.Mode,
		EEV:            r.EEV.InexactFloat64(),
		EVSolutionTime: r.EV.SolveTime,
		EVGap:          r.EV.Gap,
		InstanceFile:   instanceFile,
		RecordedAt:     at,
	}
}
