// Package schedules manages cron-based triggers for flows. Expressions use
// the standard five-field cron syntax and are validated at write time; the
// dispatcher advances due schedules on a fixed cadence.
package schedules
