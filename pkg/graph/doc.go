// Package graph defines the layout graph for Cathedral of Circuits.
// A Layout collects the nodes produced by one or more spiral generation
// runs, keyed by index, and can be validated and fingerprinted. Connections
// point from a node back to earlier nodes, so a well-formed layout is a DAG.
package graph
