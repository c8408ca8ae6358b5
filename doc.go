// Package gyro is an embedded hyperbolic vector database core: a layered
// navigable graph index over points in the open Poincaré ball, a versioned
// embedding lifecycle store, and a query execution engine with streamed and
// vectorized evaluation over pluggable distance kernels.
//
// The root package wires the pieces together behind a small facade:
//
//	db, err := gyro.New(2)
//	if err != nil { ... }
//
//	_ = db.Insert(ctx, "a", []float64{0.1, 0.0}, nil)
//	_ = db.Insert(ctx, "b", []float64{0.2, 0.0}, nil)
//
//	results, err := db.KNNSearch(ctx, []float64{0.15, 0.0}, 2)
//
// Outer surfaces - REST/CLI wrappers, policy and clearance layers,
// telemetry exporters, federation - are external collaborators: the core
// exposes a local call interface only, and telemetry polls Stats() instead
// of inspecting internals.
package gyro
