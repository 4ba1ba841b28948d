// Package estimate provides the estimator service consulted by stage engines for
// baseline model values.
package estimate

import (
	"fmt"

	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// Estimator supplies baseline values looked up by species and region.
type Estimator interface {
	LimitsForHeightAndDiameter(genus string, region types.Region) (types.ComponentSizeLimits, error)
}

// LookupError reports that no baseline exists for a genus and region.
type LookupError struct {
	Genus  string
	Region types.Region
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no size limits for genus %q in region %s", e.Genus, e.Region)
}

// TableEstimator answers from the tables of a resolved control map.
type TableEstimator struct {
	controlMap *control.Map
}

// NewTableEstimator creates an estimator over m.
func NewTableEstimator(m *control.Map) *TableEstimator {
	return &TableEstimator{controlMap: m}
}

// LimitsForHeightAndDiameter returns the baseline component size limits of genus in region.
func (e *TableEstimator) LimitsForHeightAndDiameter(genus string, region types.Region) (types.ComponentSizeLimits, error) {
	limits, ok := e.controlMap.SizeLimits(genus, region)
	if !ok {
		return types.ComponentSizeLimits{}, &LookupError{Genus: genus, Region: region}
	}
	return limits, nil
}
