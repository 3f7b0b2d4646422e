package diag

// Severity orders diagnostics. A document whose bag holds a SevError fails
// the run.
type Severity uint8

const (
	SevInfo    Severity = iota // timings and other reports
	SevWarning                 // directive dropped, result unaffected
	SevError                   // malformed directive or illegal transformation
)

var severityLabels = [...]struct{ upper, lower string }{
	SevInfo:    {"INFO", "info"},
	SevWarning: {"WARNING", "warning"},
	SevError:   {"ERROR", "error"},
}

// String is the label of the pretty and JSON formats.
func (s Severity) String() string {
	if int(s) < len(severityLabels) {
		return severityLabels[s].upper
	}
	return "UNKNOWN"
}

// Label is the lower-case label of the short format; unknown values read
// as info.
func (s Severity) Label() string {
	if int(s) < len(severityLabels) {
		return severityLabels[s].lower
	}
	return "info"
}
