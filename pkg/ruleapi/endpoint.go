package ruleapi

import "github.com/sells-group/regrule/internal/resilience"

// Endpoint names one remote stage of the rule service.
type Endpoint string

const (
	EndpointUpload   Endpoint = "upload"
	EndpointCheck    Endpoint = "check"
	EndpointSplit    Endpoint = "split"
	EndpointIdentify Endpoint = "identify"
	EndpointClassify Endpoint = "classify"
	EndpointExtract  Endpoint = "extract"
	EndpointGenerate Endpoint = "generate"
)

// Endpoints lists every stage in pipeline order.
var Endpoints = []Endpoint{
	EndpointUpload, EndpointCheck, EndpointSplit, EndpointIdentify,
	EndpointClassify, EndpointExtract, EndpointGenerate,
}

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	for _, known := range Endpoints {
		if e == known {
			return true
		}
	}
	return false
}

// DefaultPaths returns the service path of each endpoint.
func DefaultPaths() map[Endpoint]string {
	return map[Endpoint]string{
		EndpointUpload:   "/docxFile2rule",
		EndpointCheck:    "/checkAtomRule",
		EndpointSplit:    "/splitAtomRule",
		EndpointIdentify: "/identifyRule",
		EndpointClassify: "/classifyRule",
		EndpointExtract:  "/extractCommonElement",
		EndpointGenerate: "/generateCDSRL",
	}
}

// DefaultRetry returns the per-endpoint retry policies: identification and
// generation get three attempts, everything else five.
func DefaultRetry() map[Endpoint]resilience.RetryConfig {
	base := resilience.DefaultRetryConfig()
	m := make(map[Endpoint]resilience.RetryConfig, len(Endpoints))
	for _, e := range Endpoints {
		m[e] = base
	}
	m[EndpointIdentify] = base.WithAttempts(3)
	m[EndpointGenerate] = base.WithAttempts(3)
	return m
}
