package server

type Config struct {
	// ListenAddr is the HTTP listen address for the dashboard API. The CLI
	// drives the orchestrator in-process and does not need it.
	ListenAddr string
}
