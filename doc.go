/*
Package stratum resolves hierarchical, class-based configuration
inventories: trees of YAML node and class documents are expanded into
per-node parameter sets plus global class and application indexes.

It covers the domain of external node classifiers used by
configuration-management systems: many classes apply to many nodes,
classes include other classes, and values defined high up the hierarchy
can be referenced and overridden further down.

# Concept

A node declares classes; each class contributes parameters, applications,
and possibly further classes. Stratum expands that include graph
depth-first into an ordered class list, deep-merges the parameter trees
in that order (node parameters last, so they win), then resolves ${...}
references against the fully merged tree. The per-node results aggregate
into an inventory with deterministic, sorted indexes.

# Key Features

  - Deterministic resolution: merge order and output ordering are fully
    specified, so the same documents always produce the same inventory.
  - Hexagonal architecture: the resolution core only sees parsed
    documents behind the ports.DocumentSource interface; storage and
    serialization live in adapters.
  - Pattern-based class mappings: glob and regex rules inject classes by
    node name or path, with capture-group backreferences.
  - Reference interpolation: whole-value references keep their type,
    embedded references flatten, chains are memoized, loops are caught.
  - Pluggable storage: documents come from a filesystem tree (yaml_fs://)
    or a Redis database (redis://), selected by the discovery URI scheme.
  - Query surfaces: a read-only HTTP API with Prometheus metrics and an
    MCP server for agent integrations, both over the same resolver.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/strataconf/stratum"
	)

	func main() {
		svc, err := stratum.New("./inventory")
		if err != nil {
			log.Fatal(err)
		}

		info, err := svc.NodeInfo("web01")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(info.Classes)

		inv, err := svc.Inventory()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(len(inv.Nodes), "nodes resolved")
	}
*/
package stratum
