package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfProviderCall is perf metric
	PerfProviderCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_pkcs11_call",
		Help:         "perf_pkcs11_call provides the sample metrics of PKCS#11 provider calls",
		RequiredTags: []string{"call"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfProviderCall,
}
