// Package queue defines the storage-agnostic contract for the Command
// Manager: a persistent four-queue state machine (pending / running /
// finished / failed) in which every command sits in exactly one queue
// at a time.
//
// The split mirrors the teacher pack's own separation of concerns
// (gqs.Pusher / gqs.Puller / gqs.Observer): Manager is the single
// interface smartdispatch's front end and worker loop depend on, while
// concrete storage lives in a sibling package (pkg/queue/filequeue)
// implementing it over the four flat files spec §3 mandates.
package queue
