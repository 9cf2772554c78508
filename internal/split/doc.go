// Package split computes final train/val/test partitions for surviving
// records under a strict no-leak constraint.
//
// Records sharing a video URL form a URL-group. When a group's original
// splits disagree, the strictest split (test > val > train) is applied to
// the whole group and the group is locked. Rebalancing afterwards only ever
// moves unlocked train records into val or test, so a locked group can
// never be separated across partitions.
package split
