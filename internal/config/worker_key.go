package config

type WorkerKeyStruct struct {
	RecalcQueue     string
	AuditEventQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RecalcQueue:     "recalc_queue",
	AuditEventQueue: "audit_event_queue",
}
