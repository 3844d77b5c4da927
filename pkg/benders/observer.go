package benders

import (
	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/mip"
)

// Cut is an optimality cut generated for one product at one candidate
type Cut struct {
	Product      entities.ProductID
	Distribution entities.DistributionID
	Node         int64
	// Phi is the candidate's estimate that the cut separates
	Phi float64
	// ExpectedProfit is the closed-form value the cut is tight at
	ExpectedProfit float64
	Constraint     mip.Constraint
}

// CutPool stores generated cuts. Implementations must be safe for concurrent use.
type CutPool interface {
	Add(cut Cut) error
	Count() int
	ByProduct(p entities.ProductID) []Cut
}

// Observer receives solve milestones. Implementations must be safe for
// concurrent use; CutAdded may be called from engine worker goroutines.
type Observer interface {
	MasterBuilt(experiment string, variables, constraints int)
	CoverFound(cover *entities.Cover, inequalities int)
	CutAdded(cut Cut)
	SolveCompleted(solution *Solution)
}

type noopObserver struct{}

func (noopObserver) MasterBuilt(string, int, int)    {}
func (noopObserver) CoverFound(*entities.Cover, int) {}
func (noopObserver) CutAdded(Cut)                    {}
func (noopObserver) SolveCompleted(*Solution)        {}
