package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// EndpointOverride replaces the path and, optionally, the retry policy of
// one endpoint.
type EndpointOverride struct {
	Path  string       `yaml:"path"`
	Retry *RetryPolicy `yaml:"retry"`
}

// EndpointsFile is the parsed form of an endpoints override file:
//
//	endpoints:
//	  identify:
//	    path: /identifyRule
//	    retry:
//	      max_attempts: 3
type EndpointsFile struct {
	Endpoints map[string]EndpointOverride `yaml:"endpoints"`
}

var endpointNames = map[string]bool{
	"upload": true, "check": true, "split": true, "identify": true,
	"classify": true, "extract": true, "generate": true,
}

// LoadEndpoints reads and validates an endpoints override file.
func LoadEndpoints(path string) (*EndpointsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read endpoints file %s", path)
	}

	var ef EndpointsFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, eris.Wrapf(err, "config: parse endpoints file %s", path)
	}
	for name := range ef.Endpoints {
		if !endpointNames[name] {
			return nil, eris.Errorf("config: unknown endpoint %q in %s", name, path)
		}
	}
	return &ef, nil
}

// Apply merges the overrides into cfg.
func (ef *EndpointsFile) Apply(cfg *Config) {
	for name, o := range ef.Endpoints {
		if o.Path != "" {
			setPath(&cfg.Service, name, o.Path)
		}
		if o.Retry != nil {
			if cfg.Retry.Overrides == nil {
				cfg.Retry.Overrides = make(map[string]RetryPolicy)
			}
			cfg.Retry.Overrides[name] = *o.Retry
		}
	}
}

func setPath(s *ServiceConfig, name, path string) {
	switch name {
	case "upload":
		s.UploadPath = path
	case "check":
		s.CheckPath = path
	case "split":
		s.SplitPath = path
	case "identify":
		s.IdentifyPath = path
	case "classify":
		s.ClassifyPath = path
	case "extract":
		s.ExtractPath = path
	case "generate":
		s.GeneratePath = path
	}
}
