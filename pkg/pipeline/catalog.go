package pipeline

// Definition names a dataset and the filters it is fetched with. Each
// filter is a separate run.
type Definition struct {
	Dataset string
	Filters []string
}

// Catalog lists the datasets the team archives routinely.
var Catalog = []Definition{
	{Dataset: "heat_pump_deployment_quarterly_statistics"},
	{Dataset: "uk_territorial_greenhouse_gas_emissions_statistics"},
	{Dataset: "public_attitudes_tracking_survey", Filters: []string{"Summer", "Spring", "Winter"}},
}

// Lookup returns the catalog entry for dataset. Datasets outside the
// catalog run once with no filter.
func Lookup(dataset string) Definition {
	for _, def := range Catalog {
		if def.Dataset == dataset {
			return Definition{Dataset: def.Dataset, Filters: append([]string(nil), def.Filters...)}
		}
	}
	return Definition{Dataset: dataset}
}
