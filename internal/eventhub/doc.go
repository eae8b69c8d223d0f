// SPDX-License-Identifier: MPL-2.0

// Package eventhub is an in-process publish/subscribe bus. Producers publish
// events without blocking; a fixed pool of workers hands each event to every
// interested subscriber. With the default single worker, events are handled
// in publish order, which keeps per-task log files chronological.
package eventhub
