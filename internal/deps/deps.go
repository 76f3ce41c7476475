package deps

// Status reports whether an external binary can be executed.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Missing returns the required binaries that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Optional && !s.Available {
			out = append(out, s)
		}
	}
	return out
}
