// Package compare loads the captures and derived reports written for two
// execution environments and classifies how their behavior diverges.
//
// The engine runs six checks in a fixed order: feature support, event
// counts per category, unique messages, stream start timing, timer drift and
// visibility regressions. Each check fills a report section and may emit
// findings. A missing input marks the affected section as insufficient data;
// it never aborts the comparison.
package compare
