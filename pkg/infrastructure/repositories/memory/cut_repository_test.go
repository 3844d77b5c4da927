package memory

import (
	"sync"
	"testing"

	"github.com/vsinha/endoplan/pkg/benders"
	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/mip"
)

func testCut(p entities.ProductID, node int64) benders.Cut {
	expr := mip.NewLinExpr(1)
	expr.Add(0, 1)
	return benders.Cut{
		Product:    p,
		Node:       node,
		Constraint: mip.Le("optcut", expr, 1),
	}
}

func TestCutRepository_Add(t *testing.T) {
	repo := NewCutRepository(4)

	for i, p := range []entities.ProductID{0, 1, 0} {
		if err := repo.Add(testCut(p, int64(i))); err != nil {
			t.Fatalf("Failed to add cut: %v", err)
		}
	}

	if repo.Count() != 3 {
		t.Errorf("Expected 3 cuts, got %d", repo.Count())
	}

	cuts := repo.ByProduct(0)
	if len(cuts) != 2 {
		t.Fatalf("Expected 2 cuts for P0, got %d", len(cuts))
	}
	if cuts[0].Node != 0 || cuts[1].Node != 2 {
		t.Errorf("Expected nodes 0 and 2 in insertion order, got %d and %d", cuts[0].Node, cuts[1].Node)
	}

	if got := repo.ByProduct(5); len(got) != 0 {
		t.Errorf("Expected no cuts for unknown product, got %d", len(got))
	}

	all := repo.GetAllCuts()
	all[0].Node = 99
	if repo.GetAllCuts()[0].Node != 0 {
		t.Error("GetAllCuts should return a copy")
	}
}

func TestCutRepository_AddInvalid(t *testing.T) {
	repo := NewCutRepository(0)

	if err := repo.Add(testCut(-1, 0)); err == nil {
		t.Error("Expected error for cut without product")
	}
	if repo.Count() != 0 {
		t.Errorf("Expected empty repository, got %d cuts", repo.Count())
	}
}

func TestCutRepository_ConcurrentAdd(t *testing.T) {
	repo := NewCutRepository(0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(product entities.ProductID) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if err := repo.Add(testCut(product, int64(i))); err != nil {
					t.Errorf("Failed to add cut: %v", err)
				}
				_ = repo.ByProduct(product)
			}
		}(entities.ProductID(w % 2))
	}
	wg.Wait()

	if repo.Count() != 800 {
		t.Errorf("Expected 800 cuts, got %d", repo.Count())
	}
	if len(repo.ByProduct(1)) != 400 {
		t.Errorf("Expected 400 cuts for P1, got %d", len(repo.ByProduct(1)))
	}
}
