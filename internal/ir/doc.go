// Package ir provides the core data types of the simulation engine.
//
// This package contains type definitions and value encoding only. Every
// other internal package imports ir; ir imports nothing internal, which
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Values are a sealed set (Null, Bool, Int, Float, String, Time, Array,
//     Object); no silent type coercion anywhere
//   - A State's key set and key order are fixed by the initial snapshot
//   - Policies and state updates are two behavioural interfaces; blocks hold
//     them in ordered, name-keyed slices
//   - Digests use canonical JSON with domain-separated SHA-256
package ir
