package cluster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// QueueInfo is one entry of a cluster's JSON catalogue: spec §6's
// "{max_walltime, cores, gpus?, ram, modules?}", plus the cluster that
// catalogue file was loaded for.
type QueueInfo struct {
	Cluster     Kind
	MaxWalltime string   `json:"max_walltime"`
	Cores       int      `json:"cores"`
	Gpus        int      `json:"gpus"`
	Ram         string   `json:"ram"`
	Modules     []string `json:"modules"`
}

// Catalogue maps a queue name to its QueueInfo, merged across every
// "<cluster>.json" file found under dir, exactly as the original's
// get_known_queues walks config/*.json and stamps a cluster_name onto
// each entry.
type Catalogue map[string]QueueInfo

// LoadCatalogue reads every "<kind>.json" file directly under dir and
// merges them into one Catalogue. A missing dir is not an error: it
// behaves as an empty catalogue, since unknown queues are still
// accepted when the caller supplies --cores-per-node and --walltime
// (plus --gpus-per-node where GPUs are needed).
func LoadCatalogue(dir string) (Catalogue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Catalogue{}, nil
		}
		return nil, fmt.Errorf("cluster: load catalogue: %w", err)
	}

	catalogue := Catalogue{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		clusterName := strings.TrimSuffix(entry.Name(), ".json")
		kind := ParseKind(clusterName)

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("cluster: load catalogue: %w", err)
		}
		var perQueue map[string]QueueInfo
		if err := json.Unmarshal(raw, &perQueue); err != nil {
			return nil, fmt.Errorf("cluster: load catalogue: parse %s: %w", entry.Name(), err)
		}
		for name, info := range perQueue {
			info.Cluster = kind
			catalogue[name] = info
		}
	}
	return catalogue, nil
}

// Resolve implements the queue-name-based cluster inference rule
// (SUPPLEMENTED, from cluster.py's queue_factory): if queueName is in
// the catalogue, its cluster_name wins over detected, exactly as the
// original replaces cluster_name with queue_infos['cluster_name']
// before dispatching to a cluster-specific Queue subclass.
func (c Catalogue) Resolve(queueName string, detected Kind) (Kind, QueueInfo, bool) {
	info, ok := c[queueName]
	if !ok {
		return detected, QueueInfo{}, false
	}
	return info.Cluster, info, true
}
