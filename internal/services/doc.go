// Package services provides the shared error taxonomy for reconciliation
// stages and hosts the external tool clients (yt-dlp, ffmpeg) in its
// subpackages.
package services
