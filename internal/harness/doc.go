// Package harness runs conformance scenarios against the watcher.
//
// A scenario is a YAML file declaring sources, initial entries, a list of
// steps and assertions:
//
//	name: porch_light
//	description: fires once when both conditions become true
//	sources:
//	  - id: lights
//	    vars: { on: false }
//	entries:
//	  - id: porch
//	    conditions:
//	      - { id: c1, source: lights, kind: flag, params: { var: on } }
//	steps:
//	  - set: { source: lights, var: on, value: true }
//	assertions:
//	  - { type: fired_count, entry: porch, count: 1 }
//
// Run drives a real watch.Registry over a source.Catalog, so every step goes
// through the same notification path as the CLI. Seq numbers and generated
// condition IDs come from testutil, which makes traces reproducible;
// RunWithGolden compares the canonical trace against testdata/golden.
//
// Step kinds: set, touch, notify, register, deregister, fail, recover.
// A step may declare expect_error with a watch error code.
package harness
