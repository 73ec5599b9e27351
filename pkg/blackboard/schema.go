package blackboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to enable
// multiple Foundry instances to safely coexist on a single Redis server.
//
// Key pattern: cerina:{instance_name}:{entity}:{uuid}
// Channel pattern: cerina:{instance_name}:session:{uuid}:events

// SessionKey returns the Redis key for a session checkpoint hash.
// Pattern: cerina:{instance_name}:session:{session_id}
func SessionKey(instanceName, sessionID string) string {
	return fmt.Sprintf("cerina:%s:session:%s", instanceName, sessionID)
}

// SessionIndexKey returns the Redis key for the session index ZSET.
// Members are session IDs scored by creation time in milliseconds, which
// gives newest-first listing via ZREVRANGE.
// Pattern: cerina:{instance_name}:sessions
func SessionIndexKey(instanceName string) string {
	return fmt.Sprintf("cerina:%s:sessions", instanceName)
}

// SessionEventsChannel returns the Pub/Sub channel name for one session's
// workflow events. Every subscriber to the channel receives every event
// independently (fan-out).
// Pattern: cerina:{instance_name}:session:{session_id}:events
func SessionEventsChannel(instanceName, sessionID string) string {
	return fmt.Sprintf("cerina:%s:session:%s:events", instanceName, sessionID)
}
