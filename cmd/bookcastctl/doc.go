// Command bookcastctl runs the bookcast pipeline from a workstation. Project
// and chapter state live in a local SQLite database; artifacts go to
// PROJECT_BUCKET when set and to a local data directory otherwise. Stage
// hand-offs are queued in process, so `run --follow` carries a project from
// one stage to the end of the pipeline.
package main
