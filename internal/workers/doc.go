/*
Package workers sizes worker pools in containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the
container's CPU limit (Go 1.19+). Pool sizes here derive from GOMAXPROCS:

	workers.ForCPU(8)  // one per CPU, max 8
	workers.ForIO(8)   // two per CPU, max 8
	workers.ForJobs(8) // job pool: ForIO, at least 2, JOB_WORKERS overrides

A pod limited to 2 CPUs gets ForCPU(8) == 2 and ForIO(8) == 4.

# Environment Variable Override

JOB_WORKERS pins the job pool size:

	env:
	- name: JOB_WORKERS
	  value: "4"

Non-numeric or non-positive values are ignored.
*/
package workers
