package pbs

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	walltimePattern = regexp.MustCompile(`^(\d+:){1,4}`)
	nodesPattern    = regexp.MustCompile(`^[a-zA-Z0-9]+(:ppn=\d+)?(:gpus=\d+)?(:[a-zA-Z0-9]+)*$`)
	pmemPattern     = regexp.MustCompile(`^[0-9]+(b|kb|mb|gb|tb)?`)
)

// kv preserves insertion order the way the original's OrderedDict does
// for PBS options and resources: re-adding an existing key updates its
// value in place without moving it to the end.
type kv struct {
	key   string
	value string
}

// Script is one PBS job script: a self-contained bash file requesting
// resources, loading modules, and running a fixed batch of commands.
type Script struct {
	QueueName string

	options   []kv
	resources []kv

	Modules  []string
	Prolog   []string
	Commands []string
	Epilog   []string
}

// NewScript creates a Script for queueName with its mandatory walltime
// resource and "-q"/"-V" options already set, matching PBS.__init__.
func NewScript(queueName, walltime string) (*Script, error) {
	if queueName == "" {
		return nil, fmt.Errorf("pbs: queue name must be provided")
	}
	s := &Script{QueueName: queueName}
	if err := s.AddResource("walltime", walltime); err != nil {
		return nil, err
	}
	s.setOption("q", queueName)
	s.setOption("V", "")
	return s, nil
}

// AddOption sets a PBS "-X value" option. An "N" (job name) option
// longer than 64 characters is rejected, matching PBS.add_options.
func (s *Script) AddOption(name, value string) error {
	if name == "N" && len(value) > 64 {
		return fmt.Errorf("pbs: job name option exceeds 64 characters")
	}
	s.setOption(name, value)
	return nil
}

func (s *Script) setOption(name, value string) {
	for i, o := range s.options {
		if o.key == name {
			s.options[i].value = value
			return
		}
	}
	s.options = append(s.options, kv{name, value})
}

// Option returns the current value of a previously set option.
func (s *Script) Option(name string) (string, bool) {
	for _, o := range s.options {
		if o.key == name {
			return o.value, true
		}
	}
	return "", false
}

// AddResource sets a PBS "-l name=value" resource. The three resources
// the original validates (nodes, pmem, walltime) are checked against
// their grammars; any other resource name is accepted unvalidated.
func (s *Script) AddResource(name, value string) error {
	switch name {
	case "nodes":
		if !nodesPattern.MatchString(value) {
			return fmt.Errorf("pbs: unknown format for PBS resource: nodes (%q)", value)
		}
	case "pmem":
		if !pmemPattern.MatchString(value) {
			return fmt.Errorf("pbs: unknown format for PBS resource: pmem (%q)", value)
		}
	case "walltime":
		if !walltimePattern.MatchString(value) {
			return fmt.Errorf("pbs: unknown format for PBS resource: walltime (dd:hh:mm:ss) (%q)", value)
		}
	}
	s.setResource(name, value)
	return nil
}

func (s *Script) setResource(name, value string) {
	for i, r := range s.resources {
		if r.key == name {
			s.resources[i].value = value
			return
		}
	}
	s.resources = append(s.resources, kv{name, value})
}

// Resource returns the current value of a previously set resource.
func (s *Script) Resource(name string) (string, bool) {
	for _, r := range s.resources {
		if r.key == name {
			return r.value, true
		}
	}
	return "", false
}

// AddModules appends modules to be loaded before running commands.
func (s *Script) AddModules(modules ...string) {
	s.Modules = append(s.Modules, modules...)
}

// AddCommands appends commands to run serially inside the script.
func (s *Script) AddCommands(commands ...string) {
	s.Commands = append(s.Commands, commands...)
}

// AddToProlog appends lines to run before the commands.
func (s *Script) AddToProlog(lines ...string) {
	s.Prolog = append(s.Prolog, lines...)
}

// AddToEpilog appends lines to run after the commands.
func (s *Script) AddToEpilog(lines ...string) {
	s.Epilog = append(s.Epilog, lines...)
}

// String renders the script as a complete, self-contained bash file.
func (s *Script) String() string {
	var lines []string
	lines = append(lines, "#!/bin/bash")

	for _, o := range s.options {
		if o.value == "" {
			lines = append(lines, fmt.Sprintf("#PBS -%s", o.key))
		} else {
			lines = append(lines, fmt.Sprintf("#PBS -%s %s", o.key, o.value))
		}
	}
	for _, r := range s.resources {
		lines = append(lines, fmt.Sprintf("#PBS -l %s=%s", r.key, r.value))
	}

	lines = append(lines, "", "# Modules #")
	for _, m := range s.Modules {
		lines = append(lines, "module load "+m)
	}

	lines = append(lines, "", "# Prolog #")
	lines = append(lines, s.Prolog...)

	lines = append(lines, "", "# Commands #")
	lines = append(lines, s.Commands...)

	lines = append(lines, "", "# Epilog #")
	lines = append(lines, s.Epilog...)

	return strings.Join(lines, "\n")
}
