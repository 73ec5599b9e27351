// Package blackboard provides type-safe Go definitions and Redis schema patterns
// for the Cerina Foundry blackboard. The blackboard is the shared state system
// where the drafting agents, the supervisor, and external callers (API server,
// CLI) interact via one durable Session record per workflow run.
//
// All Redis keys and channels are namespaced by instance name to enable
// multiple Foundry instances to safely coexist on a single Redis server.
package blackboard
