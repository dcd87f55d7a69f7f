// Package cluster resolves which HPC site smartdispatch is running on
// and loads that site's queue catalogue.
//
// A ClusterKind is a closed sum type (spec §REDESIGN FLAGS: "cyclic/
// inherited cluster policies -> tagged variants"), replacing the
// original's per-cluster subclasses with a single enum and a catalogue
// keyed by queue name. Detection never touches global state: Detect and
// LoadCatalogue both return plain values a caller threads through
// explicitly.
package cluster
