// Package logger provides structured JSON logging on top of Uber's Zap.
//
// Every method takes a message, an optional error and optional field maps:
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "trackindexer"})
//	log.Info("run scheduled", nil, map[string]interface{}{"isrc": isrc, "run_id": runID})
//
// When Config.EnableTracing is set, the *WithContext variants add the trace_id and
// span_id of the OpenTelemetry span found in the context:
//
//	ctx, span := tracer.StartSpan(ctx, "pipeline.attempt")
//	defer span.End()
//	log.ErrorWithContext(ctx, "step failed", err, map[string]interface{}{"step": step})
//
// With fx, include logger.FXModule and provide a logger.Config. The module supplies both
// *LoggerClient and the Logger interface, and flushes buffered entries on stop.
package logger
