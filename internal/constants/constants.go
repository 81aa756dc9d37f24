// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face cropping constants
const (
	// DefaultCropSize is the side length in pixels of a circular crop
	DefaultCropSize = 400

	// DefaultMinConfidence is the minimum detector score for a face to be used
	DefaultMinConfidence = 0.3

	// ExpansionFactor grows the detected face box by 70% in each dimension
	// so the crop includes hair and shoulders. Not configurable.
	ExpansionFactor = 0.7

	// MaskBlurRadius is the gaussian sigma (in pixels) used to soften the circle edge
	MaskBlurRadius = 2.0

	// CroppedSuffix is appended to the input file stem to name the output
	CroppedSuffix = "_cropped.png"
)

// HTTP constants
const (
	// DefaultUserAgent identifies API requests to Wikimedia services
	DefaultUserAgent = "TennisPlayerImageDownloader/1.0 (https://example.com/contact)"

	// BrowserUserAgent is sent to flag CDNs that reject non-browser clients
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// DefaultAPITimeout bounds a single metadata API request
	DefaultAPITimeout = 10 * time.Second

	// DefaultDownloadTimeout bounds a single portrait download attempt
	DefaultDownloadTimeout = 30 * time.Second

	// DefaultDetectorTimeout bounds a single face detection request
	DefaultDetectorTimeout = 60 * time.Second

	// FlagRequestTimeout bounds a single flag source request
	FlagRequestTimeout = 15 * time.Second
)

// Download constants
const (
	// DefaultDownloadRetries is the number of attempts for a portrait download
	DefaultDownloadRetries = 3

	// DefaultRetryInterval is the first backoff interval; it doubles per attempt
	DefaultRetryInterval = time.Second

	// DefaultPortraitDelay is the pause after each processed player
	DefaultPortraitDelay = time.Second

	// DefaultFlagDelay is the pause between two flag downloads
	DefaultFlagDelay = 800 * time.Millisecond

	// MinFlagBytes rejects responses too small to be a real flag image
	MinFlagBytes = 100

	// PortraitThumbSize is the thumbnail width requested from the MediaWiki API
	PortraitThumbSize = 1000
)
