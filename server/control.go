// File: server/control.go
//
// Server's api.Control implementation: configuration snapshots and merges
// via control.ConfigStore, runtime counters via control.MetricsRegistry,
// and named debug probes via control.DebugProbes. SetConfig only records
// values and notifies OnReload listeners; it is the embedder's reload hook
// that decides which of its own knobs are safe to re-apply to a running
// server.
package server

import (
	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/control"
)

// seedControlConfig publishes the construction-time configuration into the
// control store so GetConfig reflects what the server was actually built
// with, including the pass-through scheduling fields.
func (s *Server) seedControlConfig() {
	s.ctlConfig.SetConfig(map[string]any{
		"server_tcp_port":     s.cfg.ServerTCPPort,
		"num_conn_slots":      s.cfg.NumConnSlots,
		"enable_websockets":   s.cfg.EnableWebSockets,
		"enable_file_server":  s.cfg.EnableFileServer,
		"task_core":           s.cfg.TaskCore,
		"task_priority":       s.cfg.TaskPriority,
		"task_stack_size":     s.cfg.TaskStackSize,
		"send_buffer_max_len": s.cfg.SendBufferMaxLen,
		"rest_api_channel_id": s.cfg.RestAPIChannelID,
		"rest_api_prefix":     s.cfg.RestAPIPrefix,
		"clear_pending_ms":    s.cfg.ClearPendingMS,
		"idle_timeout_ms":     s.cfg.IdleTimeoutMS,
		"total_timeout_ms":    s.cfg.TotalTimeoutMS,
	})
}

// GetConfig returns a snapshot of the control store.
func (s *Server) GetConfig() map[string]any {
	return s.ctlConfig.GetSnapshot()
}

// SetConfig merges cfg into the control store and notifies reload
// listeners.
func (s *Server) SetConfig(cfg map[string]any) error {
	s.ctlConfig.SetConfig(cfg)
	return nil
}

// OnReload registers fn to run after every SetConfig merge.
func (s *Server) OnReload(fn func()) {
	s.ctlConfig.OnReload(fn)
}

// RegisterDebugProbe registers a named probe whose value is folded into
// every Stats snapshot.
func (s *Server) RegisterDebugProbe(name string, fn func() any) {
	s.ctlProbes.RegisterProbe(name, fn)
}

// Stats refreshes the metrics registry from the connection manager's
// counters and returns the combined metrics + debug-probe snapshot.
func (s *Server) Stats() map[string]any {
	if s.mgr != nil {
		st := s.mgr.Stats()
		s.ctlMetrics.Set("connections_accepted", st.TotalConnectionsAccepted)
		s.ctlMetrics.Set("connections_refused", st.TotalConnectionsRefused)
		s.ctlMetrics.Set("bytes_sent", st.TotalBytesSent)
		s.ctlMetrics.Set("bytes_received", st.TotalBytesReceived)
		s.ctlMetrics.Set("active_slots", st.ActiveSlots)
		s.ctlMetrics.Set("free_slots", st.FreeSlots)
	}
	out := s.ctlMetrics.GetSnapshot()
	for name, val := range s.ctlProbes.DumpState() {
		out[name] = val
	}
	return out
}

var _ api.Control = (*Server)(nil)

// newControlPlane builds the three control-plane stores a Server owns.
func newControlPlane() (*control.ConfigStore, *control.MetricsRegistry, *control.DebugProbes) {
	return control.NewConfigStore(), control.NewMetricsRegistry(), control.NewDebugProbes()
}
