// Package server provides the HTTP API for the vehicle inventory.
//
// Routes, relative to Config.PathPrefix:
//
//	GET  /health, /ready
//	GET  /vehicles                      merged views, filterable
//	GET  /vehicles/{id}                 resolution through the load-order controller
//	GET  /vehicles/{id}/watch           resolution state changes as SSE
//	GET  /vehicles/{id}/enhancement     stored enhancement record
//	PUT  /vehicles/{id}/enhancement     write an enhancement record
//	GET  /enhancements/orphans          enhancement identities with no vehicle
//	POST /ingest                        run an ingestion now
//	GET  /stats
//	GET  /updates/ws, /updates/stream   inventory change events
//
// Usage:
//
//	srv, err := server.New(app, server.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv.Start()
//	http.ListenAndServe(":8080", srv.Handler())
package server
