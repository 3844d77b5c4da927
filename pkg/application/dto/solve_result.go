package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SolveResult contains the complete output of a decomposition run
type SolveResult struct {
	RunID      string `json:"run_id"`
	Instance   string `json:"instance"`
	Experiment string `json:"experiment"`
	Engine     string `json:"engine"`

	Size InstanceSize `json:"size"`

	Status    string  `json:"status"`
	Feasible  bool    `json:"feasible"`
	Objective float64 `json:"objective"`
	BestBound float64 `json:"best_bound"`
	// Gap is +Inf without an incumbent and is omitted from JSON in that case
	Gap   float64 `json:"-"`
	Nodes int64   `json:"nodes"`

	BuildTime    time.Duration `json:"build_time"`
	SolveTime    time.Duration `json:"solve_time"`
	CallbackTime time.Duration `json:"callback_time"`

	RootCaptured bool          `json:"root_captured"`
	RootBound    float64       `json:"-"`
	RootTime     time.Duration `json:"root_time"`

	Cuts              int64          `json:"cuts"`
	// CutsByProduct is keyed by product name
	CutsByProduct     map[string]int `json:"cuts_by_product"`
	Candidates        int64          `json:"candidates"`
	ValidInequalities int            `json:"valid_inequalities"`
	// CoverInequalities is keyed by cover kind
	CoverInequalities map[string]int `json:"cover_inequalities"`

	FirstStageCost      decimal.Decimal `json:"first_stage_cost"`
	ExpectedSecondStage decimal.Decimal `json:"expected_second_stage"`

	Plan        []PlanEntry          `json:"plan,omitempty"`
	SecondStage []ProductSecondStage `json:"second_stage,omitempty"`

	// Events is the run's event stream replayed after the solve
	Events []RunEvent `json:"events,omitempty"`
}

// RunEvent is one recorded milestone of a run
type RunEvent struct {
	Version int       `json:"version"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
}

// PlanEntry is the first-stage decision of one (product, facility) pair
type PlanEntry struct {
	Product    string  `json:"product"`
	Facility   string  `json:"facility"`
	Level      int     `json:"level"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	Quantity   float64 `json:"quantity"`
}

// ProductSecondStage is the replayed second stage of one product under the
// distribution its levels enforce
type ProductSecondStage struct {
	Product        string          `json:"product"`
	Distribution   string          `json:"distribution"`
	Phi            float64         `json:"phi"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	Scenarios      []ScenarioLine  `json:"scenarios"`
}

// ScenarioLine is the second-stage outcome of one scenario
type ScenarioLine struct {
	Scenario    int     `json:"scenario"`
	Probability float64 `json:"probability"`
	Demand      float64 `json:"demand"`
	Production  float64 `json:"production"`
	Sales       float64 `json:"sales"`
	Oversupply  float64 `json:"oversupply"`
	Profit      float64 `json:"profit"`
}

// EEVResult is the expected result of using the expected-value solution
type EEVResult struct {
	RunID    string `json:"run_id"`
	Instance string `json:"instance"`
	Mode     string `json:"mode"`

	Size InstanceSize `json:"size"`

	// EV is the run on the expected-value instance
	EV *SolveResult `json:"ev"`

	FirstStageCost      decimal.Decimal `json:"first_stage_cost"`
	ExpectedSecondStage decimal.Decimal `json:"expected_second_stage"`
	EEV                 decimal.Decimal `json:"eev"`
	// Distributions names the distribution the EV plan enforces per product
	Distributions []string `json:"distributions"`
}
