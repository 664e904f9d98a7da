// Package cost holds per-model token pricing used to estimate what a run
// cost. Prices are USD per million tokens, the unit providers publish.
package cost
