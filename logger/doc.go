// Package logger wraps zerolog with the conventions used across recordbind:
// a component tag per subsystem, map-based structured fields, and a global
// logger configured once from Config.
//
// # Usage
//
//	log := logger.New(&logger.Config{Level: "debug", Format: "json"}, "recordbind")
//	log.WithComponent("pipeline").Info("run finished", logger.Fields(
//	    logger.FieldRunID, runID,
//	    logger.FieldRecords, 1200,
//	))
//
// Loggers are safe for concurrent use; pipeline workers share one instance.
package logger
