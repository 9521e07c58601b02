// Package shutdown coordinates graceful termination of the agent.
//
// Hooks are registered with a name and run in reverse order of
// registration once SIGINT/SIGTERM arrives, Trigger is called, or the
// context passed to Wait is done. All hooks share one timeout.
package shutdown
