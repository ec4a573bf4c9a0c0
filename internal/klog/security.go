package klog

// LogSecurityEvent records a security-relevant event at warn level (or
// error, for severity "error"/"critical"), mirroring
// original_source/rfsn_kernel/logging.py's log_security_event: every
// gate denial, patch-confinement rejection, and signature-verification
// failure goes through here so they're greppable by event=security in
// the kernel's stderr stream.
func (l *Logger) LogSecurityEvent(eventType string, severity string, details ...Field) {
	fields := append([]Field{F("event", "security"), F("event_type", eventType)}, details...)
	switch severity {
	case "error", "critical":
		l.Error("security event: "+eventType, fields...)
	default:
		l.Warn("security event: "+eventType, fields...)
	}
}

// LogGateDecision records a gate allow/deny outcome, mirroring
// rfsn_kernel/logging.py's log_gate_decision.
func (l *Logger) LogGateDecision(allowed bool, reason string, workspace string) {
	status := "ALLOW"
	if !allowed {
		status = "DENY"
	}
	l.Info("gate decision: "+status,
		F("event", "gate_decision"),
		F("allowed", allowed),
		F("reason", reason),
		F("workspace", workspace),
	)
	if !allowed {
		l.LogSecurityEvent("gate_denial", "warning", F("reason", reason), F("workspace", workspace))
	}
}

// LogActionExecution records one action's outcome, mirroring
// rfsn_kernel/logging.py's log_action_execution.
func (l *Logger) LogActionExecution(actionKind string, success bool, durationMS int64) {
	status := "OK"
	if !success {
		status = "FAILED"
	}
	l.Info("action executed: "+actionKind+" "+status,
		F("event", "action_execution"),
		F("action_kind", actionKind),
		F("success", success),
		F("duration_ms", durationMS),
	)
}
