// Package driver extracts captures from instrumented pages through a
// browser automation page and turns them into the results-directory
// artifacts consumed by the comparison engine.
//
// A run follows the same script for every environment:
//
//  1. wait until the page's monitors exist
//  2. let the page settle, then export the initial-load capture together
//     with its timing and event reports
//  3. scroll down, wait for the scroll to end, export the scroll capture
//  4. scroll back and write a bug report when elements that were visible
//     before the cycle are no longer visible
//
// The page only has to expose window.DriftLens (see pkg/jshost for the
// in-process equivalent). Playwright pages satisfy Page directly.
package driver
