// Package pbs packs a list of commands into one or more PBS/Torque job
// scripts: the §4.D packing algorithm, per-cluster post-processing
// rules, resource/option validation, and bash rendering.
//
// Script mirrors the original's PBS class: an ordered set of options,
// an ordered set of resources, modules to load, and prolog/command/
// epilog sections, rendered with String. Cluster-specific behavior
// (Mammouth forcing ppn=1, Hades swapping gpus for ppn, Guillimin/
// Helios account-name injection) is applied as a post-processing step
// over a freshly generated Generic Script, per spec's REDESIGN FLAGS
// note replacing per-cluster subclasses with a tagged variant.
package pbs
