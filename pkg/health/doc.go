/*
Package health provides the liveness checkers the Node Registry's Health
Prober runs against registered storage backends, and the Status type that
turns a stream of check results into a HEALTHY/UNHEALTHY state transition.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                   Health Check System                       │
	│                                                               │
	│   Checker interface: Check(ctx) Result, Type() CheckType     │
	│                                                               │
	│   └── SFTPChecker (SSH handshake + auth against a backend)   │
	│                                                               │
	│   Status: tracks ConsecutiveFailures/Successes, flips        │
	│   Healthy to false after Config.Retries consecutive          │
	│   failures and back to true on the first success — the      │
	│   hysteresis behind the Node Registry's transitions.         │
	└─────────────────────────────────────────────────────────────┘

The registry's prober runs SFTPChecker against every registered backend
endpoint, since every Storage Node in this system is reached over SFTP.
A Status requires Config.Retries consecutive failures before flipping
Healthy to false, and a single success to flip it back — this is what
keeps a single flaky probe from bouncing a backend out of rotation.
*/
package health
