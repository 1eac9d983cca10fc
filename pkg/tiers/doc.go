// Package tiers declares the reasoning tiers (T0..T3) and the pure selection
// function that maps a request's category, complexity, and urgency onto one
// of them.
package tiers
