package pbs

import (
	"fmt"
)

// Queue is the Queue descriptor spec §3 defines: a destination plus the
// per-node resources commands packed into it may draw on.
type Queue struct {
	Name         string
	Walltime     string
	CoresPerNode int
	GpusPerNode  int
	Modules      []string
}

// Resources are the per-command resource needs spec §4.D calls r =
// (cores, gpus, mem).
type Resources struct {
	Cores int
	Gpus  int
}

// Plan packs commands into one Script per chunk using the §4.D packing
// algorithm: K = floor(cores_per_node / r.cores), capped by
// floor(gpus_per_node / r.gpus) when both the queue and r specify
// gpus. jobLogBase names the directory -o/-e redirect into
// (spec §6, SUPPLEMENTED from job_generator.py's job_log_filename).
func Plan(queue Queue, commands []string, r Resources, prolog, epilog []string, jobLogBase string) ([]*Script, error) {
	if r.Cores <= 0 {
		return nil, fmt.Errorf("pbs: nb_cores_per_command must be positive")
	}

	k := queue.CoresPerNode / r.Cores
	if queue.GpusPerNode > 0 && r.Gpus > 0 {
		if byGpu := queue.GpusPerNode / r.Gpus; byGpu < k {
			k = byGpu
		}
	}
	if k <= 0 {
		return nil, fmt.Errorf("pbs: queue %q cannot fit any command with resources %+v", queue.Name, r)
	}

	var scripts []*Script
	for start := 0; start < len(commands); start += k {
		end := start + k
		if end > len(commands) {
			end = len(commands)
		}
		chunk := commands[start:end]

		script, err := NewScript(queue.Name, queue.Walltime)
		if err != nil {
			return nil, err
		}

		if jobLogBase != "" {
			outPath := fmt.Sprintf(`"%s/logs/job/"$PBS_JOBID".out"`, jobLogBase)
			errPath := fmt.Sprintf(`"%s/logs/job/"$PBS_JOBID".err"`, jobLogBase)
			if err := script.AddOption("o", outPath); err != nil {
				return nil, err
			}
			if err := script.AddOption("e", errPath); err != nil {
				return nil, err
			}
		}

		ppn := len(chunk) * r.Cores
		nodes := fmt.Sprintf("1:ppn=%d", ppn)
		if queue.GpusPerNode > 0 {
			nodes += fmt.Sprintf(":gpus=%d", len(chunk)*r.Gpus)
		}
		if err := script.AddResource("nodes", nodes); err != nil {
			return nil, err
		}

		script.AddModules(queue.Modules...)
		script.AddToProlog(prolog...)
		script.AddCommands(chunk...)
		script.AddToEpilog(epilog...)

		scripts = append(scripts, script)
	}
	return scripts, nil
}
