// Package badger implements pipeline.Store on an embedded Badger database.
//
// It suits a single trackindexer process that must resume its runs after a
// restart without an external store. Claim and SaveStep run in serializable
// read-write transactions, retried when Badger reports a conflict, so concurrent
// claims for one ISRC start at most one run and step results are write-once.
package badger
