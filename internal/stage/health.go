package stage

// Health reports whether a pipeline stage's requirements are satisfied
// before a run reaches it. Preflight-style checks surface these through
// the status command.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks the named stage ready to execute.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks the named stage unavailable, with detail explaining
// what is missing or misconfigured.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
