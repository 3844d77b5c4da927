package benders

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/endoplan/pkg/domain/entities"
	"github.com/vsinha/endoplan/pkg/domain/services"
	"github.com/vsinha/endoplan/pkg/mip"
)

// CoverKind distinguishes the inequalities derived from a cover
type CoverKind int

const (
	MinimalCover CoverKind = iota
	AlternativeMinimalCover
	ExtendedCover
	AlternativeExtendedCover
)

// String method for CoverKind enum
func (k CoverKind) String() string {
	switch k {
	case MinimalCover:
		return "minimal"
	case AlternativeMinimalCover:
		return "alternative_minimal"
	case ExtendedCover:
		return "extended"
	case AlternativeExtendedCover:
		return "alternative_extended"
	default:
		return "unknown"
	}
}

// CoverInequality is one inequality derived from a cover. Replaced and
// Substitute are -1 unless Kind is an alternative.
type CoverInequality struct {
	Kind       CoverKind
	Replaced   entities.ProductID
	Substitute entities.ProductID
	Constraint mip.Constraint
}

// substitution pairs a cover member with a non-member whose lower bound at
// the same level index still overflows the capacity
type substitution struct {
	replaced   entities.ProductID
	substitute entities.ProductID
	level      entities.LevelID
}

// MinimalCoverInequalities derives the minimal cover inequality and its
// alternatives from a cover
func (m *MasterProblem) MinimalCoverInequalities(cover *entities.Cover) []CoverInequality {
	f := cover.Facility
	rhs := float64(cover.Size() - 1)

	expr := mip.NewLinExpr(cover.Size())
	for _, item := range cover.Items {
		expr.Add(m.Y(item.Product, f, item.Level), 1)
	}
	out := []CoverInequality{{
		Kind: MinimalCover, Replaced: -1, Substitute: -1,
		Constraint: mip.Le(fmt.Sprintf("mci_%s", f), expr, rhs),
	}}

	for _, sub := range m.substitutions(cover) {
		expr := mip.NewLinExpr(cover.Size())
		expr.Add(m.Y(sub.substitute, f, sub.level), 1)
		for _, item := range cover.Items {
			if item.Product != sub.replaced {
				expr.Add(m.Y(item.Product, f, item.Level), 1)
			}
		}
		out = append(out, CoverInequality{
			Kind: AlternativeMinimalCover, Replaced: sub.replaced, Substitute: sub.substitute,
			Constraint: mip.Le(fmt.Sprintf("mci_%s_%s_by_%s", f, sub.replaced, sub.substitute), expr, rhs),
		})
	}
	return out
}

// ExtendedCoverInequalities derives the extended cover inequality and its
// alternatives from a cover
func (m *MasterProblem) ExtendedCoverInequalities(cover *entities.Cover) []CoverInequality {
	inst := m.instance
	f := cover.Facility
	rhs := float64(cover.Size() - 1)

	expr := mip.NewLinExpr(cover.Size())
	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		if l, ok := cover.LevelOf(p); ok {
			expr.Add(m.Y(p, f, l), 1)
			continue
		}
		m.addAllLevels(&expr, p, f)
	}
	out := []CoverInequality{{
		Kind: ExtendedCover, Replaced: -1, Substitute: -1,
		Constraint: mip.Le(fmt.Sprintf("eci_%s", f), expr, rhs),
	}}

	for _, sub := range m.substitutions(cover) {
		expr := mip.NewLinExpr(cover.Size())
		expr.Add(m.Y(sub.substitute, f, sub.level), 1)
		for _, item := range cover.Items {
			if item.Product != sub.replaced {
				expr.Add(m.Y(item.Product, f, item.Level), 1)
			}
		}
		for i := range inst.NumProducts() {
			p := entities.ProductID(i)
			if p != sub.replaced && p != sub.substitute && !cover.Contains(p) {
				m.addAllLevels(&expr, p, f)
			}
		}
		out = append(out, CoverInequality{
			Kind: AlternativeExtendedCover, Replaced: sub.replaced, Substitute: sub.substitute,
			Constraint: mip.Le(fmt.Sprintf("eci_%s_%s_by_%s", f, sub.replaced, sub.substitute), expr, rhs),
		})
	}
	return out
}

func (m *MasterProblem) addAllLevels(expr *mip.LinExpr, p entities.ProductID, f entities.FacilityID) {
	for l := range m.instance.NumLevels(f, p) {
		expr.Add(m.Y(p, f, entities.LevelID(l)), 1)
	}
}

// substitutions lists every (member, non-member) swap that keeps the cover
// weight above capacity. A non-member lacking the member's level index is
// skipped.
func (m *MasterProblem) substitutions(cover *entities.Cover) []substitution {
	inst := m.instance
	f := cover.Facility
	subs := make([]substitution, 0)

	for _, item := range cover.Items {
		for i := range inst.NumProducts() {
			pr := entities.ProductID(i)
			if cover.Contains(pr) || int(item.Level) >= inst.NumLevels(f, pr) {
				continue
			}
			weight := cover.Weight -
				inst.LevelLowerBound(f, item.Product, item.Level) +
				inst.LevelLowerBound(f, pr, item.Level)
			if weight > inst.Capacity(f) {
				subs = append(subs, substitution{replaced: item.Product, substitute: pr, level: item.Level})
			}
		}
	}
	return subs
}

// CoverOptions selects which cover families to add
type CoverOptions struct {
	Minimal  bool
	Extended bool
}

// AddCoverInequalities searches a minimal cover at every facility in
// parallel and adds the selected families, in facility order. It returns the
// added inequalities.
func (m *MasterProblem) AddCoverInequalities(ctx context.Context, finder *services.CoverFinder, opts CoverOptions, observer Observer) ([]CoverInequality, error) {
	if !opts.Minimal && !opts.Extended {
		return nil, nil
	}
	if observer == nil {
		observer = noopObserver{}
	}

	nF := m.instance.NumFacilities()
	covers := make([]*entities.Cover, nF)
	g, ctx := errgroup.WithContext(ctx)
	for j := range nF {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if cover, ok := finder.FindMinimalCover(entities.FacilityID(j)); ok {
				covers[j] = cover
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cover search interrupted: %w", err)
	}

	added := make([]CoverInequality, 0)
	for j, cover := range covers {
		if cover == nil {
			m.logger.Debug("no cover at facility", zap.String("facility", m.instance.FacilityName(entities.FacilityID(j))))
			continue
		}
		var derived []CoverInequality
		if opts.Minimal {
			derived = append(derived, m.MinimalCoverInequalities(cover)...)
		}
		if opts.Extended {
			derived = append(derived, m.ExtendedCoverInequalities(cover)...)
		}
		for _, ci := range derived {
			if _, err := m.model.AddConstraint(ci.Constraint); err != nil {
				return nil, fmt.Errorf("failed to add cover inequality %s: %w", ci.Constraint.Name, err)
			}
		}
		observer.CoverFound(cover, len(derived))
		m.logger.Info("cover inequalities added",
			zap.Stringer("cover", cover),
			zap.Int("inequalities", len(derived)))
		added = append(added, derived...)
	}

	if opts.Minimal {
		m.tag("MCI")
	}
	if opts.Extended {
		m.tag("ECI")
	}
	return added, nil
}
