// Package launch invokes the cluster's launcher binary (qsub or msub)
// on a set of generated PBS scripts and records the resulting job IDs.
//
// On Helios, the launcher's printed job id and the job's eventual PBS
// job id can disagree (SRMJID vs PBS_JOBID); Launch reconciles this
// with a follow-up `qstat -f` call, the SUPPLEMENTED behavior kept from
// smartdispatch.py's launch_jobs.
package launch
