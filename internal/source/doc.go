// Package source provides in-memory source instances for edgewatch.
//
// A Catalog holds Instances (each a bag of named variables) and the
// condition-kind definitions they offer. It implements watch.Resolver and
// watch.Subscriptions, and reports variable changes to a Notifier, which is
// normally the watch Registry or Loop.
//
// Built-in kinds:
//   - flag:    variable params.var is IRBool(true)
//   - equals:  variable params.var equals params.value
//   - present: variable params.var is set
//   - var:     variable params.var is truthy (instance generic evaluator,
//     used for any kind without a definition)
package source
