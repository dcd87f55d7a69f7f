package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smartdispatch/smartdispatch/pkg/cluster"
	applog "github.com/smartdispatch/smartdispatch/pkg/log"
	"github.com/smartdispatch/smartdispatch/pkg/pbs"
)

// resolveQueue turns a queue name plus optional flag overrides into a
// pbs.Queue and the cluster.Kind it belongs to. A catalogue entry fills
// every field; any non-empty flag value then overrides the matching
// field, for known and unknown queues alike. An unknown queue is
// rejected unless coresPerNode and walltime are both given.
func resolveQueue(
	ctx context.Context,
	catalogueDir, queueName, walltime string,
	coresPerNode, gpusPerNode int,
) (pbs.Queue, cluster.Kind, error) {
	catalogue, err := cluster.LoadCatalogue(catalogueDir)
	if err != nil {
		return pbs.Queue{}, cluster.Generic, fmt.Errorf("load queue catalogue: %w", err)
	}

	detected := cluster.Detect(ctx)
	kind, info, known := catalogue.Resolve(queueName, detected)

	queue := pbs.Queue{Name: queueName}
	switch {
	case known:
		queue.Walltime = info.MaxWalltime
		queue.CoresPerNode = info.Cores
		queue.GpusPerNode = info.Gpus
		queue.Modules = info.Modules
	case coresPerNode > 0 && walltime != "":
		queue.Walltime = walltime
		queue.CoresPerNode = coresPerNode
		queue.GpusPerNode = gpusPerNode
	default:
		return pbs.Queue{}, cluster.Generic, usageErrorf(
			"queue %q is not in the catalogue; supply --cores-per-node and --walltime (and --gpus-per-node if applicable)",
			queueName,
		)
	}

	if walltime != "" {
		queue.Walltime = walltime
	}
	if coresPerNode > 0 {
		queue.CoresPerNode = coresPerNode
	}
	if gpusPerNode > 0 {
		queue.GpusPerNode = gpusPerNode
	}

	return queue, kind, nil
}

func componentLogger(component string) zerolog.Logger {
	return applog.WithComponent(component)
}
