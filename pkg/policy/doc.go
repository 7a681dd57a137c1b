// Package policy compiles the operator supplied exclusion pattern used to
// silence known or expected unit anomalies.
package policy
