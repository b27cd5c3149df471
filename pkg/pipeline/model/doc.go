// Package model provides the data structures shared by the pipeline, its plugins and its
// options. It defines the plugin contract, the node the graph builder instantiates for every
// stage and filter, the per-plugin configuration, and the hooks pipeline options implement.
package model
