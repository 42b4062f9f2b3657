// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package health

import "time"

// Metrics is a point-in-time snapshot of an embedding provider's upstream
// health, safe to serialize to JSON or YAML.
type Metrics struct {
	FailureCount  int64      `json:"failure_count" yaml:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty" yaml:"cooldown_until,omitempty"`
	Available     bool       `json:"available" yaml:"available"`
}
