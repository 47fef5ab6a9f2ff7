// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/synod-project/synod/lib/topology"
	"github.com/synod-project/synod/lib/unit"
)

// Workload filesystem and process names.
const (
	// ConfigPath is the main homeserver configuration file.
	ConfigPath = "/data/homeserver.yaml"

	// WorkerConfigPath is the per-unit worker configuration file.
	WorkerConfigPath = "/data/worker.yaml"

	// FederationConfigPath is the federation sender configuration
	// file, rendered on the main unit of a clustered deployment.
	FederationConfigPath = "/data/federationsender.yaml"

	// MainProcess is the supervisor name of the homeserver process.
	MainProcess = "synapse"

	// WorkerProcess is the supervisor name of the worker process.
	WorkerProcess = "synapse-worker"

	// FederationProcess is the supervisor name of the federation
	// sender process.
	FederationProcess = "synapse-federation-sender"
)

// SigningKeyPath returns the workload path of the homeserver signing
// key. The workload generates this file itself on first start.
func SigningKeyPath(serverName string) string {
	return "/data/" + serverName + ".signing.key"
}

// Params are the inputs to Render. All derived from cluster state —
// nothing here is local to one unit except the unit itself.
type Params struct {
	// ServerName is the homeserver's public server name.
	ServerName string

	// Unit is the local unit.
	Unit unit.Unit

	// IsMain reports whether the local unit is the recorded main.
	IsMain bool

	// MainAddress is the recorded main unit's canonical address.
	MainAddress string

	// Topology is the derived role map. Empty for single-unit groups.
	Topology *topology.Map
}

// homeserverConfig is the rendered homeserver YAML. Field order is
// declaration order under yaml.v3, which keeps the output bytes
// stable across units.
type homeserverConfig struct {
	ServerName     string        `yaml:"server_name"`
	SigningKeyPath string        `yaml:"signing_key_path"`
	InstanceMap    *topology.Map `yaml:"instance_map,omitempty"`
}

// workerConfig is the rendered configuration of one worker process.
type workerConfig struct {
	WorkerApp       string           `yaml:"worker_app"`
	WorkerName      string           `yaml:"worker_name"`
	WorkerListeners []workerListener `yaml:"worker_listeners"`
}

type workerListener struct {
	Type      string             `yaml:"type"`
	Port      int                `yaml:"port"`
	Resources []listenerResource `yaml:"resources"`
}

type listenerResource struct {
	Names []string `yaml:"names"`
}

// Render derives the complete desired configuration for the local
// unit. The main unit runs the homeserver process (plus the federation
// sender when clustered); every other unit runs a generic worker named
// by its unit ID. Deterministic: identical params produce identical
// bytes on every unit.
func Render(params Params) (*Desired, error) {
	clustered := params.Topology != nil && params.Topology.Len() > 0

	homeserver := homeserverConfig{
		ServerName:     params.ServerName,
		SigningKeyPath: SigningKeyPath(params.ServerName),
	}
	if clustered {
		homeserver.InstanceMap = params.Topology
	}
	homeserverYAML, err := yaml.Marshal(&homeserver)
	if err != nil {
		return nil, fmt.Errorf("workload: rendering homeserver config: %w", err)
	}

	desired := &Desired{
		Files: []FileSpec{{Path: ConfigPath, Data: homeserverYAML}},
	}

	if params.IsMain {
		desired.Processes = append(desired.Processes, ProcessSpec{
			Name:    MainProcess,
			Command: "python -m synapse.app.homeserver --config-path " + ConfigPath,
		})
		if clustered {
			federationYAML, err := renderWorker("federationsender1")
			if err != nil {
				return nil, err
			}
			desired.Files = append(desired.Files, FileSpec{Path: FederationConfigPath, Data: federationYAML})
			desired.Processes = append(desired.Processes, ProcessSpec{
				Name: FederationProcess,
				Command: "python -m synapse.app.generic_worker --config-path " + ConfigPath +
					" --config-path " + FederationConfigPath,
			})
		}
		return desired, nil
	}

	id, err := params.Unit.ID()
	if err != nil {
		return nil, fmt.Errorf("workload: deriving worker name: %w", err)
	}
	workerYAML, err := renderWorker(fmt.Sprintf("worker%d", id))
	if err != nil {
		return nil, err
	}
	desired.Files = append(desired.Files, FileSpec{Path: WorkerConfigPath, Data: workerYAML})
	desired.Processes = append(desired.Processes, ProcessSpec{
		Name: WorkerProcess,
		Command: "python -m synapse.app.generic_worker --config-path " + ConfigPath +
			" --config-path " + WorkerConfigPath,
	})
	return desired, nil
}

func renderWorker(name string) ([]byte, error) {
	config := workerConfig{
		WorkerApp:  "synapse.app.generic_worker",
		WorkerName: name,
		WorkerListeners: []workerListener{{
			Type:      "http",
			Port:      topology.PortFederation,
			Resources: []listenerResource{{Names: []string{"replication"}}},
		}},
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return nil, fmt.Errorf("workload: rendering worker config %s: %w", name, err)
	}
	return data, nil
}
