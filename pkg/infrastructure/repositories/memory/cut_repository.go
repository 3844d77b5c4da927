package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/endoplan/pkg/benders"
	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// CutRepository provides in-memory storage for optimality cuts. It is safe
// for concurrent use by separator callbacks.
type CutRepository struct {
	mu        sync.RWMutex
	cuts      []benders.Cut
	byProduct map[entities.ProductID][]int
}

// NewCutRepository creates a new in-memory cut repository
func NewCutRepository(expectedCuts int) *CutRepository {
	return &CutRepository{
		cuts:      make([]benders.Cut, 0, expectedCuts),
		byProduct: make(map[entities.ProductID][]int),
	}
}

// Verify interface compliance
var _ benders.CutPool = (*CutRepository)(nil)

// Add stores a cut
func (r *CutRepository) Add(cut benders.Cut) error {
	if cut.Product < 0 {
		return fmt.Errorf("cut %q has no product", cut.Constraint.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byProduct[cut.Product] = append(r.byProduct[cut.Product], len(r.cuts))
	r.cuts = append(r.cuts, cut)
	return nil
}

// Count returns the number of stored cuts
func (r *CutRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cuts)
}

// ByProduct returns the cuts of a product in insertion order
func (r *CutRepository) ByProduct(p entities.ProductID) []benders.Cut {
	r.mu.RLock()
	defer r.mu.RUnlock()
	indexes := r.byProduct[p]
	cuts := make([]benders.Cut, 0, len(indexes))
	for _, i := range indexes {
		cuts = append(cuts, r.cuts[i])
	}
	return cuts
}

// GetAllCuts returns every stored cut in insertion order
func (r *CutRepository) GetAllCuts() []benders.Cut {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]benders.Cut(nil), r.cuts...)
}
