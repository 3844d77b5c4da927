package entities

import "fmt"

// ProductID identifies a product by its zero-based position in the instance
type ProductID int

// FacilityID identifies a facility by its zero-based position in the instance
type FacilityID int

// LevelID identifies a production level of a (facility, product) pair
type LevelID int

// DistributionID identifies one level combination of a product
type DistributionID int

// ScenarioID identifies a scenario nested under a distribution
type ScenarioID int

func (p ProductID) String() string      { return fmt.Sprintf("P%d", int(p)) }
func (f FacilityID) String() string     { return fmt.Sprintf("F%d", int(f)) }
func (l LevelID) String() string        { return fmt.Sprintf("L%d", int(l)) }
func (d DistributionID) String() string { return fmt.Sprintf("D%d", int(d)) }
func (s ScenarioID) String() string     { return fmt.Sprintf("S%d", int(s)) }
