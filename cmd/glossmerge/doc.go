// Command glossmerge reconciles the WLASL and MS-ASL corpora into one
// deduplicated, leak-free dataset and drives the video fetch pipeline.
package main
