package schedule

import "strings"

// Option is one allow-listed trigger with its display label.
type Option struct {
	Cron  string
	Label string
}

// Allowed is the fixed set of schedules config sets may use. Triggers fire
// at the top of the named UTC hour; labels show the recipients' local time.
var Allowed = []Option{
	{Cron: "0 0 * * *", Label: "Daily at 08:00 UTC+8"},
	{Cron: "0 1 * * *", Label: "Daily at 09:00 UTC+8"},
	{Cron: "0 2 * * *", Label: "Daily at 10:00 UTC+8"},
	{Cron: "0 3 * * *", Label: "Daily at 11:00 UTC+8"},
	{Cron: "0 4 * * *", Label: "Daily at 12:00 UTC+8"},
	{Cron: "0 5 * * *", Label: "Daily at 13:00 UTC+8"},
	{Cron: "0 6 * * *", Label: "Daily at 14:00 UTC+8"},
	{Cron: "0 7 * * *", Label: "Daily at 15:00 UTC+8"},
	{Cron: "0 8 * * *", Label: "Daily at 16:00 UTC+8"},
	{Cron: "0 9 * * *", Label: "Daily at 17:00 UTC+8"},
	{Cron: "0 10 * * *", Label: "Daily at 18:00 UTC+8"},
	{Cron: "0 11 * * *", Label: "Daily at 19:00 UTC+8"},
	{Cron: "0 12 * * *", Label: "Daily at 20:00 UTC+8"},
}

var allowedSet = func() map[string]bool {
	set := make(map[string]bool, len(Allowed))
	for _, opt := range Allowed {
		set[opt.Cron] = true
	}
	return set
}()

// IsAllowed reports whether every member of a comma-joined schedule set is
// on the allow-list.
func IsAllowed(scheduleCron string) bool {
	for _, part := range strings.Split(scheduleCron, ",") {
		if !allowedSet[strings.TrimSpace(part)] {
			return false
		}
	}
	return true
}

// Contains reports whether the schedule set contains the trigger string.
// This is a literal membership test, not a cron arithmetic match: the
// trigger value is itself one of the allow-listed expressions.
func Contains(scheduleCron, trigger string) bool {
	for _, part := range strings.Split(scheduleCron, ",") {
		if strings.TrimSpace(part) == trigger {
			return true
		}
	}
	return false
}

// Normalize trims and deduplicates a comma-joined schedule set, preserving
// first-seen order.
func Normalize(scheduleCron string) string {
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(scheduleCron, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return strings.Join(out, ",")
}
