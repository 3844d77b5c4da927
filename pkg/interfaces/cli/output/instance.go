package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vsinha/endoplan/pkg/domain/entities"
)

// WriteInstanceSummary prints the data of an instance. Scenarios are listed
// only when verbose is set.
func WriteInstanceSummary(w io.Writer, inst *entities.Instance, verbose bool) {
	fmt.Fprintf(w, "Instance %s\n", inst.Name())
	fmt.Fprintf(w, "==================================================\n\n")
	fmt.Fprintf(w, "Products: %d  Facilities: %d  Max levels: %d  Max distributions: %d  Max scenarios: %d\n\n",
		inst.NumProducts(), inst.NumFacilities(), inst.MaxLevels(), inst.MaxDistributions(), inst.MaxScenarios())

	fmt.Fprintf(w, "%-15s %-10s\n", "Facility", "Capacity")
	fmt.Fprintf(w, "%-15s %-10s\n", "---------------", "----------")
	for i := range inst.NumFacilities() {
		f := entities.FacilityID(i)
		fmt.Fprintf(w, "%-15s %-10.3f\n", inst.FacilityName(f), inst.Capacity(f))
	}
	fmt.Fprintln(w)

	for i := range inst.NumProducts() {
		p := entities.ProductID(i)
		fmt.Fprintf(w, "Product %s: price %.3f, leftover value %.3f, expectation ceiling %.3f\n",
			inst.ProductName(p), inst.SalesPrice(p), inst.LeftoverValue(p), inst.ExpectationCeiling(p))

		for j := range inst.NumFacilities() {
			f := entities.FacilityID(j)
			levels := make([]string, inst.NumLevels(f, p))
			for k := range levels {
				l := entities.LevelID(k)
				levels[k] = fmt.Sprintf("%s[%g, %g]", l, inst.LevelLowerBound(f, p, l), inst.LevelUpperBound(f, p, l))
			}
			fmt.Fprintf(w, "  at %-12s cost %-8.3f levels %s\n",
				inst.FacilityName(f), inst.ManufacturingCost(f, p), strings.Join(levels, " "))
		}

		for k := range inst.NumDistributions(p) {
			d := entities.DistributionID(k)
			required := make([]string, inst.NumFacilities())
			for j := range required {
				f := entities.FacilityID(j)
				required[j] = fmt.Sprintf("%s=%s", inst.FacilityName(f), inst.DistributionLevel(p, d, f))
			}
			fmt.Fprintf(w, "  distribution %-10s %s, %d scenarios\n",
				inst.DistributionName(p, d), strings.Join(required, " "), inst.NumScenarios(p, d))

			if !verbose {
				continue
			}
			for s := range inst.NumScenarios(p, d) {
				sc := entities.ScenarioID(s)
				yields := make([]string, inst.NumFacilities())
				for j := range yields {
					yields[j] = fmt.Sprintf("%g", inst.Yield(p, d, entities.FacilityID(j), sc))
				}
				fmt.Fprintf(w, "    %s p=%-8.4f demand=%-10g yields=%s ceiling=%g\n",
					sc, inst.Probability(p, d, sc), inst.Demand(p, d, sc), strings.Join(yields, ","),
					inst.ProductionCeiling(p, d, sc))
			}
		}
		fmt.Fprintln(w)
	}
}
