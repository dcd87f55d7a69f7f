package pbs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/smartdispatch/smartdispatch/pkg/cluster"
)

var (
	ppnPattern  = regexp.MustCompile(`ppn=[0-9]+`)
	gpusPattern = regexp.MustCompile(`:gpus=([0-9]+)`)
)

// ApplyClusterRules mutates every script in place to satisfy the
// cluster-specific rules spec §4.D lists, replacing the original's
// per-cluster JobGenerator subclasses with one switch over kind.
func ApplyClusterRules(kind cluster.Kind, scripts []*Script) error {
	switch kind {
	case cluster.Mammouth:
		return applyMammouth(scripts)
	case cluster.Hades:
		return applyHades(scripts)
	case cluster.Guillimin:
		return applyGuillimin(scripts)
	case cluster.Helios:
		return applyHelios(scripts)
	default:
		return nil
	}
}

// applyMammouth forces ppn=1 on @mp2 queues: the site schedules whole
// nodes, not cores.
func applyMammouth(scripts []*Script) error {
	for _, s := range scripts {
		if !strings.HasSuffix(s.QueueName, "@mp2") {
			continue
		}
		nodes, ok := s.Resource("nodes")
		if !ok {
			continue
		}
		if err := s.AddResource("nodes", ppnPattern.ReplaceAllString(nodes, "ppn=1")); err != nil {
			return err
		}
	}
	return nil
}

// applyHades swaps the gpus count into ppn (the site bills GPUs as
// ppn) and drops the now-redundant :gpus= suffix.
func applyHades(scripts []*Script) error {
	for _, s := range scripts {
		nodes, ok := s.Resource("nodes")
		if !ok {
			return fmt.Errorf("pbs: hades rules require a gpus resource, got none")
		}
		m := gpusPattern.FindStringSubmatch(nodes)
		if m == nil {
			return fmt.Errorf("pbs: hades rules require :gpus=N in nodes resource, got %q", nodes)
		}
		nodes = ppnPattern.ReplaceAllString(nodes, "ppn="+m[1])
		nodes = gpusPattern.ReplaceAllString(nodes, "")
		if err := s.AddResource("nodes", nodes); err != nil {
			return err
		}
	}
	return nil
}

// applyGuillimin stamps every script with the account name taken from
// $HOME_GROUP's trailing path component.
func applyGuillimin(scripts []*Script) error {
	return specifyAccountNameFromEnv(scripts, "HOME_GROUP")
}

// applyHelios stamps every script with the account name read from
// ~/.default_rap and strips the forbidden ppn= option (the site
// defaults to 2 cores per GPU and rejects an explicit ppn).
func applyHelios(scripts []*Script) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("pbs: helios rules: resolve $HOME: %w", err)
	}
	if err := specifyAccountNameFromFile(scripts, filepath.Join(home, ".default_rap")); err != nil {
		return err
	}
	for _, s := range scripts {
		nodes, ok := s.Resource("nodes")
		if !ok {
			continue
		}
		nodes = regexp.MustCompile(`:ppn=[0-9]+`).ReplaceAllString(nodes, "")
		if err := s.AddResource("nodes", nodes); err != nil {
			return err
		}
	}
	return nil
}

func specifyAccountNameFromEnv(scripts []*Script, envVar string) error {
	value, ok := os.LookupEnv(envVar)
	if !ok {
		return fmt.Errorf("pbs: undefined environment variable $%s; please provide your account name", envVar)
	}
	accountName := filepath.Base(value)
	for _, s := range scripts {
		if err := s.AddOption("A", accountName); err != nil {
			return err
		}
	}
	return nil
}

func specifyAccountNameFromFile(scripts []*Script, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pbs: account name file %s does not exist; please provide your account name: %w", path, err)
	}
	accountName := strings.TrimSpace(string(raw))
	for _, s := range scripts {
		if err := s.AddOption("A", accountName); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRawFlags applies user-supplied raw PBS flags ("-lresource=value"
// or "-Xvalue") to every script, the SUPPLEMENTED passthrough from
// pbs_generators.py's add_pbs_flags.
func ApplyRawFlags(scripts []*Script, flags []string) error {
	for _, flag := range flags {
		switch {
		case strings.HasPrefix(flag, "-l"):
			resource := flag[2:]
			eq := strings.IndexByte(resource, '=')
			if eq < 0 {
				return fmt.Errorf("pbs: invalid PBS flag (%s)", flag)
			}
			name, value := resource[:eq], resource[eq+1:]
			for _, s := range scripts {
				if err := s.AddResource(name, value); err != nil {
					return err
				}
			}
		case strings.HasPrefix(flag, "-"):
			if len(flag) < 2 {
				return fmt.Errorf("pbs: invalid PBS flag (%s)", flag)
			}
			name, value := flag[1:2], flag[2:]
			for _, s := range scripts {
				if err := s.AddOption(name, value); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("pbs: invalid PBS flag (%s)", flag)
		}
	}
	return nil
}

// WriteScripts renders every script to "<dir>/job_commands_<i>.sh" and
// returns the filenames written, in order.
func WriteScripts(dir string, scripts []*Script) ([]string, error) {
	var filenames []string
	for i, s := range scripts {
		filename := filepath.Join(dir, fmt.Sprintf("job_commands_%d.sh", i))
		if err := os.WriteFile(filename, []byte(s.String()), 0o755); err != nil {
			return nil, fmt.Errorf("pbs: write %s: %w", filename, err)
		}
		filenames = append(filenames, filename)
	}
	return filenames, nil
}
