package precompute

// Industry-representative grid dimensions. The standard grid covers the
// common contact-center operating range; the extended grid adds the
// high-volume, short-handle-time edge cases that round poorly onto it.
var (
	standardArrivalRates = []float64{10, 25, 50, 75, 100, 150, 200, 300, 400, 500, 750, 1000}
	standardAHTs         = []float64{120, 180, 240, 300, 360, 420, 480, 600}
	standardSLTargets    = []float64{0.70, 0.75, 0.80, 0.85, 0.90, 0.95}
	standardWaits        = []float64{10, 20, 30, 60, 90, 120}

	extendedArrivalRates = []float64{1500, 2000, 3000, 5000}
	extendedAHTs         = []float64{60, 90, 120}
	extendedWaits        = []float64{15, 30}
)

// StandardGrid returns the Cartesian product of the standard dimensions.
func StandardGrid() []ScenarioInput {
	return cartesian(standardArrivalRates, standardAHTs, standardSLTargets, standardWaits)
}

// ExtendedGrid returns the high-volume edge-case scenarios.
func ExtendedGrid() []ScenarioInput {
	return cartesian(extendedArrivalRates, extendedAHTs, standardSLTargets, extendedWaits)
}

// FullGrid returns the standard grid followed by the extended grid.
func FullGrid() []ScenarioInput {
	return append(StandardGrid(), ExtendedGrid()...)
}

func cartesian(rates, ahts, targets, waits []float64) []ScenarioInput {
	grid := make([]ScenarioInput, 0, len(rates)*len(ahts)*len(targets)*len(waits))
	for _, rate := range rates {
		for _, aht := range ahts {
			for _, sl := range targets {
				for _, wait := range waits {
					grid = append(grid, ScenarioInput{
						ArrivalRate:        rate,
						AHTSeconds:         aht,
						TargetServiceLevel: sl,
						TargetWaitSeconds:  wait,
					})
				}
			}
		}
	}
	return grid
}
