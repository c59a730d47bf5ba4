// Package prediction defines the port to the passenger-count predictor and
// the configurable feature contract the engine supplies to it.
//
// The feature vector shape is deployment configuration: a FeatureSet is a
// list of named expressions evaluated against the aggregate of one slot.
// Predictors are opaque and may change between versions; the engine only
// relies on Predict returning a finite, non-negative count.
package prediction
