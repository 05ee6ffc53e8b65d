// Package localstore keeps pipeline state on the local machine: a SQLite
// repository for projects and chapters and a directory-backed object store.
// bookcastctl uses it to run the pipeline without Firestore or GCS.
package localstore
