// Package testingx provides testing helpers and fakes for logdecor packages.
//
// # Overview
//
// testingx contains small utilities for unit tests: an in-memory logger that
// records every call, a logger that captures plain text, and a buffer that
// collects the JSON records written by a logx transport.
//
// # Features
//
//   - MockLogger with in-memory capture, field lookup and assertions
//   - CaptureLogger writing one text line per record
//   - RecordBuffer, an io.Writer transport that decodes JSON lines
//   - Error assertion helpers for core/errors codes
//
// # Usage
//
//	buf := testingx.NewRecordBuffer()
//	class := provisionx.Define[FruitManager](provisionx.Config{Transports: []io.Writer{buf}})
//	...
//	records := buf.Records(t)
//
// # Layer
//
// testingx is an auxiliary package for tests only and depends on core packages.
package testingx
